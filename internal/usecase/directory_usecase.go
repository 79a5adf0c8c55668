package usecase

import (
	"context"

	"familydir/internal/domain/service"

	"github.com/google/uuid"
)

// NearbyMember is a member with its distance from the caller in kilometers.
type NearbyMember struct {
	*MemberView
	DistanceKm float64
}

// Birthday is a member whose birthday is today.
type Birthday struct {
	ID          uuid.UUID
	Name        string
	ImageURL    string
	DateOfBirth string // DD-MM-YYYY
}

// DirectoryUsecase serves the read views over all members.
type DirectoryUsecase interface {
	ListMembers(ctx context.Context) ([]*MemberView, error)
	SearchMembers(ctx context.Context, query string) ([]*MemberView, error)
	// Nearby returns members with coordinates ordered by distance from origin. Members whose
	// distance cannot be computed are left out.
	Nearby(ctx context.Context, origin service.Coordinate) ([]*NearbyMember, error)
	BirthdaysToday(ctx context.Context) ([]*Birthday, error)
	// ProfileQR renders a PNG QR code linking to the member's profile page.
	ProfileQR(ctx context.Context, id uuid.UUID) ([]byte, error)
}
