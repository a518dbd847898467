package attendance

import (
	"context"
	"errors"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"studentdesk/internal/apperr"
	"studentdesk/internal/model"
	"studentdesk/internal/store"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// IssueQRCode creates an active token for the batch valid for ttl, or the
// configured default when ttl is not positive.
func (s *Service) IssueQRCode(ctx context.Context, batchID string, ttl time.Duration) (model.QRCode, error) {
	if _, err := s.batch(ctx, batchID); err != nil {
		return model.QRCode{}, err
	}
	if ttl <= 0 {
		ttl = s.qrTTL
	}
	now := s.now()
	qr := model.QRCode{
		BatchID:   batchID,
		ValidDate: now.In(s.loc).Format(model.DateLayout),
		ExpiresAt: now.Add(ttl).UTC(),
		Active:    true,
		CreatedAt: now.UTC(),
	}
	if err := s.repo.CreateQRCode(ctx, &qr); err != nil {
		return model.QRCode{}, err
	}
	return qr, nil
}

func (s *Service) DeactivateQRCode(ctx context.Context, token string) error {
	err := s.repo.DeactivateQRCode(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Invalid QR Code")
	}
	return err
}

// ActiveQRCodes lists the batch's tokens that can still be scanned.
func (s *Service) ActiveQRCodes(ctx context.Context, batchID string) ([]model.QRCode, error) {
	if _, err := s.batch(ctx, batchID); err != nil {
		return nil, err
	}
	codes, err := s.repo.ActiveQRCodes(ctx, batchID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := codes[:0]
	for _, c := range codes {
		if !c.Expired(now) {
			live = append(live, c)
		}
	}
	return live, nil
}

// RenderQRCode encodes the token as a square PNG of size pixels.
func (s *Service) RenderQRCode(ctx context.Context, token string, size int) ([]byte, error) {
	if _, err := s.repo.QRCode(ctx, token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Invalid QR Code")
		}
		return nil, err
	}
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}
	return qrcode.Encode(token, qrcode.Medium, size)
}
