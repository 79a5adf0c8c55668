// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"familydir/internal/domain/entity"
	"familydir/internal/domain/service"

	"github.com/google/uuid"
)

// CreateMemberInput represents the input for adding a new member.
// Relationship ids arrive as raw strings and are validated by the use case.
type CreateMemberInput struct {
	Name         string
	DateOfBirth  string // DD/MM/YYYY, required
	Phone        string
	Occupation   string
	Address      string
	About        string
	LocationLink string           // Maps link resolved to coordinates
	Location     *entity.Location // Used when no link is given
	Image        *service.ImageUpload
	ImageRef     string // Existing image reference, used when no upload is given
	SpouseID     string
	ParentID     string
	ChildIDs     []string
}

// UpdateMemberInput represents a partial update. A nil pointer leaves the field unchanged;
// a pointer to "" clears it. ChildIDs follows the same rule: nil leaves the children set
// alone, an empty non-nil slice clears it.
type UpdateMemberInput struct {
	Name         *string
	DateOfBirth  *string // DD/MM/YYYY; "" leaves the stored date unchanged
	Phone        *string
	Occupation   *string
	Address      *string
	About        *string
	LocationLink *string
	Image        *service.ImageUpload
	ImageRef     *string
	SpouseID     *string
	ParentID     *string
	ChildIDs     []string
}

// MemberUsecase maintains members and keeps spouse and children links consistent.
type MemberUsecase interface {
	CreateMember(ctx context.Context, input *CreateMemberInput) (*entity.Member, error)
	UpdateMember(ctx context.Context, id uuid.UUID, input *UpdateMemberInput) (*entity.Member, error)
	// DeleteMember removes the member and every reference to it, returning its last state.
	DeleteMember(ctx context.Context, id uuid.UUID) (*entity.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*entity.Member, error)
}
