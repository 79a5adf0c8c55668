package qrcode

import (
	"testing"

	"familydir/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(size int, level string) *qrcodeService {
	return NewQRCodeService(&config.QRCodeConfig{
		Size:                 size,
		ErrorCorrectionLevel: level,
		BaseURL:              "https://family.example.com/",
	}).(*qrcodeService)
}

func TestNewQRCodeService(t *testing.T) {
	tests := []struct {
		name                 string
		size                 int
		errorCorrectionLevel string
	}{
		{"Low error correction", 256, "L"},
		{"Medium error correction", 256, "M"},
		{"High error correction", 256, "Q"},
		{"Highest error correction", 256, "H"},
		{"Default error correction", 256, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newService(tt.size, tt.errorCorrectionLevel)
			assert.NotNil(t, service)
		})
	}
}

func TestQRCodeService_GenerateProfileQR(t *testing.T) {
	service := newService(256, "M")
	memberID := uuid.New()

	qrBytes, err := service.GenerateProfileQR(memberID)
	require.NoError(t, err)
	assert.NotEmpty(t, qrBytes)

	// Verify it's a valid PNG (starts with PNG magic number)
	assert.Equal(t, byte(0x89), qrBytes[0])
	assert.Equal(t, byte(0x50), qrBytes[1])
	assert.Equal(t, byte(0x4E), qrBytes[2])
	assert.Equal(t, byte(0x47), qrBytes[3])
}

func TestQRCodeService_GenerateProfileQR_DifferentSizes(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"Small QR", 128},
		{"Medium QR", 256},
		{"Large QR", 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newService(tt.size, "M")

			qrBytes, err := service.GenerateProfileQR(uuid.New())
			require.NoError(t, err)
			assert.NotEmpty(t, qrBytes)
		})
	}
}

func TestQRCodeService_ProfileURLRoundTrip(t *testing.T) {
	service := newService(256, "M")
	memberID := uuid.New()

	link := service.ProfileURL(memberID)
	assert.Equal(t, "https://family.example.com/profile/"+memberID.String(), link)

	parsed, err := service.ParseProfileURL(link)
	require.NoError(t, err)
	assert.Equal(t, memberID, parsed)
}

func TestQRCodeService_ParseProfileURL_Invalid(t *testing.T) {
	service := newService(256, "M")

	tests := []struct {
		name string
		link string
	}{
		{"Wrong path", "https://family.example.com/members/" + uuid.NewString()},
		{"Bad uuid", "https://family.example.com/profile/not-a-uuid"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ParseProfileURL(tt.link)
			assert.Error(t, err)
		})
	}
}
