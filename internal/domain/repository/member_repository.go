// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"familydir/internal/domain/entity"
	"familydir/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for member persistence.
var (
	// ErrMemberNotFound is returned when a member is not found.
	ErrMemberNotFound = errors.New("member not found")
	// ErrMemberAlreadyExists is returned when a member id is already taken.
	ErrMemberAlreadyExists = errors.New("member already exists")
)

// MemberRepository defines the member store. Scalar fields are written through
// CreateMember/UpdateMember; spouse and children edges have dedicated operations so that only
// the relationship maintainer changes them.
type MemberRepository interface {
	// CreateMember persists a new member including its initial spouse and children edges.
	CreateMember(ctx context.Context, member *entity.Member) error

	// FindMemberByID retrieves a member with its spouse id and children ids.
	FindMemberByID(ctx context.Context, id uuid.UUID) (*entity.Member, error)

	// FindMembersByIDs retrieves the members that exist among ids, in the order of ids.
	FindMembersByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Member, error)

	// FindAllMembers returns every member ordered by creation time.
	FindAllMembers(ctx context.Context) ([]*entity.Member, error)

	// SearchMembers returns members whose name, phone, occupation or address contains query,
	// compared case-insensitively.
	SearchMembers(ctx context.Context, query string) ([]*entity.Member, error)

	// FindParentByChildID returns the member whose children edge to childID was recorded
	// first. Returns ErrMemberNotFound when the child has no parent.
	FindParentByChildID(ctx context.Context, childID uuid.UUID) (*entity.Member, error)

	// FindParentIDsByChildID returns every member whose children set contains childID.
	FindParentIDsByChildID(ctx context.Context, childID uuid.UUID) ([]uuid.UUID, error)

	// UpdateMember saves the scalar fields of an existing member. Relationship edges are untouched.
	UpdateMember(ctx context.Context, member *entity.Member) error

	// SetSpouse overwrites the spouse reference of one member. A nil spouseID clears it.
	SetSpouse(ctx context.Context, id uuid.UUID, spouseID *uuid.UUID) error

	// AddChildren adds childIDs to the children set of parentID; ids already present are skipped.
	AddChildren(ctx context.Context, parentID uuid.UUID, childIDs ...uuid.UUID) error

	// ReplaceChildren overwrites the children set of parentID with exactly childIDs.
	ReplaceChildren(ctx context.Context, parentID uuid.UUID, childIDs []uuid.UUID) error

	// RemoveChildEverywhere removes childID from every children set that contains it.
	RemoveChildEverywhere(ctx context.Context, childID uuid.UUID) error

	// ClearSpouseReferences clears the spouse field of every member pointing at id.
	ClearSpouseReferences(ctx context.Context, id uuid.UUID) error

	// DeleteMember removes a member and its own children edges.
	DeleteMember(ctx context.Context, id uuid.UUID) error
}
