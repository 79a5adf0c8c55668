package service

import (
	"github.com/google/uuid"
)

// QRCodeService defines the interface for QR code generation and parsing services
type QRCodeService interface {
	// GenerateProfileQR generates a PNG QR code pointing at a member's profile page
	GenerateProfileQR(memberID uuid.UUID) ([]byte, error)

	// ProfileURL returns the profile link encoded in the QR code
	ProfileURL(memberID uuid.UUID) string

	// ParseProfileURL extracts the member ID from a scanned profile link
	ParseProfileURL(link string) (uuid.UUID, error)
}
