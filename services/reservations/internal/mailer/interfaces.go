package mailer

import (
	"context"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

type Service interface {
	SendReservationConfirmation(ctx context.Context, msg domain.ConfirmationEmail) error
}
