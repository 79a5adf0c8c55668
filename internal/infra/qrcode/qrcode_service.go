package qrcode

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"familydir/config"
	"familydir/internal/domain/service"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const profilePathSegment = "profile"

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
	baseURL              string
}

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(cfg *config.QRCodeConfig) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch cfg.ErrorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 cfg.Size,
		errorCorrectionLevel: level,
		baseURL:              strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// ProfileURL returns the link to a member's profile page
func (s *qrcodeService) ProfileURL(memberID uuid.UUID) string {
	return s.baseURL + "/" + profilePathSegment + "/" + memberID.String()
}

// GenerateProfileQR generates a PNG QR code encoding the member's profile link
func (s *qrcodeService) GenerateProfileQR(memberID uuid.UUID) ([]byte, error) {
	qrCode, err := qrcode.New(s.ProfileURL(memberID), s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	// Generate PNG image
	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}

// ParseProfileURL extracts the member ID from a scanned profile link
func (s *qrcodeService) ParseProfileURL(link string) (uuid.UUID, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse profile link: %w", err)
	}

	dir, id := path.Split(strings.TrimSuffix(u.Path, "/"))
	if path.Base(dir) != profilePathSegment {
		return uuid.Nil, fmt.Errorf("not a profile link: %s", link)
	}

	memberID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse member ID: %w", err)
	}

	return memberID, nil
}
