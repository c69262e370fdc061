package domain

import (
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationStarted      ReservationStatus = "started"
	ReservationStepDone     ReservationStatus = "step_done"
	ReservationConfirmed    ReservationStatus = "confirmed"
	ReservationCompensating ReservationStatus = "compensating"
	ReservationFailed       ReservationStatus = "failed"
)

type ReserveRequest struct {
	Email         string   `json:"email" validate:"required,email"`
	PublisherName string   `json:"publisherName" validate:"max=120"`
	Stalls        []string `json:"stalls" validate:"required,min=1,dive,required,stallid"`
}

// Normalize trims input and drops duplicate stall ids, keeping first-seen order.
func (r *ReserveRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PublisherName = strings.TrimSpace(r.PublisherName)

	seen := make(map[string]bool, len(r.Stalls))
	stalls := make([]string, 0, len(r.Stalls))
	for _, id := range r.Stalls {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id != "" {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		stalls = append(stalls, id)
	}
	r.Stalls = stalls
}

type ReserveResult struct {
	Message  string   `json:"message"`
	Reserved []string `json:"reserved"`
	Ignored  []string `json:"ignored,omitempty"`
	Stalls   []Stall  `json:"stalls"`
	// Acquired are the stalls this call took from free, as written.
	Acquired []Stall `json:"-"`
}

type ConfirmRequest struct {
	ReservationID string   `json:"reservationId" validate:"omitempty,reservationid"`
	Email         string   `json:"email"`
	PublisherName string   `json:"publisherName"`
	Stalls        []string `json:"stalls"`
}

func (r *ConfirmRequest) ReserveRequest() *ReserveRequest {
	return &ReserveRequest{
		Email:         r.Email,
		PublisherName: r.PublisherName,
		Stalls:        append([]string(nil), r.Stalls...),
	}
}

type ConfirmResult struct {
	Message       string   `json:"message"`
	ReservationID string   `json:"reservationId"`
	QRURL         string   `json:"qrUrl"`
	Stalls        []string `json:"stalls"`
	Ignored       []string `json:"ignored,omitempty"`
}

// Reservation is the record carried through confirmation and kept in the
// reservation log.
type Reservation struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	PublisherName string            `json:"publisherName"`
	Stalls        []string          `json:"stalls"`
	Status        ReservationStatus `json:"status"`
	CurrentStep   string            `json:"currentStep"`
	QRURL         string            `json:"qrUrl,omitempty"`
	QRObject      string            `json:"-"`
	Errors        []string          `json:"errors,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// QRPayload is the JSON document encoded in the QR image.
type QRPayload struct {
	ReservationID string `json:"reservationId"`
	Email         string `json:"email"`
}

type QRCode struct {
	URL     string
	Object  string
	Payload QRPayload
}

type ConfirmationEmail struct {
	To            string
	PublisherName string
	ReservationID string
	Stalls        []string
	QRURL         string
}
