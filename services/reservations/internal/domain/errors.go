package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrStallUnavailable = errors.New("stall already reserved")
	ErrQRIssuance       = errors.New("qr issuance failed")
	ErrNotification     = errors.New("confirmation email failed")
	ErrNotFound         = errors.New("not found")
)

// ErrReservationExists is returned when a reservation id is reused by another
// requester or while its confirmation is still running.
var ErrReservationExists = errors.New("reservation already exists")

// ConflictError lists the stalls another publisher already holds.
type ConflictError struct {
	Stalls []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stalls already reserved: %s", strings.Join(e.Stalls, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrStallUnavailable
}
