package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/pkg/storage"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

type QRService interface {
	Issue(ctx context.Context, reservationID, email, publisherName string) (*domain.QRCode, error)
	Revoke(ctx context.Context, object string) error
}

type qrService struct {
	bucket    storage.Bucket
	urlExpiry time.Time
}

// NewQRService issues QR images into bucket. Signed URLs stay valid until
// urlExpiry.
func NewQRService(bucket storage.Bucket, urlExpiry time.Time) QRService {
	return &qrService{bucket: bucket, urlExpiry: urlExpiry}
}

func (s *qrService) Issue(ctx context.Context, reservationID, email, publisherName string) (*domain.QRCode, error) {
	payload := domain.QRPayload{ReservationID: reservationID, Email: email}
	png, err := EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQRIssuance, err)
	}

	object := fmt.Sprintf("qrcodes/%s-%s.png", reservationID, uuid.NewString()[:8])

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.bucket.Upload(uploadCtx, object, "image/png", png); err != nil {
		return nil, fmt.Errorf("%w: upload %s: %v", domain.ErrQRIssuance, object, err)
	}

	signCtx, cancelSign := context.WithTimeout(ctx, 5*time.Second)
	defer cancelSign()
	url, err := s.bucket.SignedURL(signCtx, object, s.urlExpiry)
	if err != nil {
		if delErr := s.bucket.Delete(context.WithoutCancel(ctx), object); delErr != nil {
			logger.ErrorContext(ctx, "Failed to delete unsigned QR object", "error", delErr, "object", object)
		}
		return nil, fmt.Errorf("%w: sign url: %v", domain.ErrQRIssuance, err)
	}

	logger.InfoContext(ctx, "QR code issued", "object", object, "publisher_name", publisherName)
	return &domain.QRCode{URL: url, Object: object, Payload: payload}, nil
}

func (s *qrService) Revoke(ctx context.Context, object string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.bucket.Delete(ctx, object); err != nil {
		return fmt.Errorf("failed to delete qr object %s: %w", object, err)
	}
	return nil
}

// EncodePayload renders payload as a PNG QR code.
func EncodePayload(payload domain.QRPayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DecodePayload parses the text read from a reservation QR code.
func DecodePayload(text []byte) (*domain.QRPayload, error) {
	var p domain.QRPayload
	if err := json.Unmarshal(text, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid qr payload: %v", domain.ErrValidation, err)
	}
	if p.ReservationID == "" || p.Email == "" {
		return nil, fmt.Errorf("%w: qr payload missing reservationId or email", domain.ErrValidation)
	}
	return &p, nil
}
