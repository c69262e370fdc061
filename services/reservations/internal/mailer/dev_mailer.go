package mailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

// DevMailer prints emails instead of sending them.
type DevMailer struct {
	out io.Writer
}

func NewDevMailer() *DevMailer {
	return &DevMailer{out: os.Stdout}
}

func (d *DevMailer) SendReservationConfirmation(ctx context.Context, msg domain.ConfirmationEmail) error {
	rendered, err := renderConfirmation(msg)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "📧 [DEV MAIL] Reservation confirmation",
		"to", msg.To,
		"reservation_id", msg.ReservationID,
		"stalls", msg.Stalls,
		"qr_url", msg.QRURL,
	)

	fmt.Fprintf(d.out, "\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 RESERVATION CONFIRMATION (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"%s"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		msg.To, rendered.Subject, strings.TrimLeft(rendered.Text, "\n"))

	return nil
}
