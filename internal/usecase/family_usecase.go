package usecase

import (
	"context"

	"familydir/internal/domain/entity"

	"github.com/google/uuid"
)

// MemberView is a member decorated for display. Spouse and Children are only populated on the
// top-level view.
type MemberView struct {
	Member       *entity.Member
	ImageURL     string
	LocationLink string // Empty when the member has no location
	Spouse       *MemberView
	Children     []*MemberView
}

// FamilyTreeNode is one couple in the descendant tree.
type FamilyTreeNode struct {
	Member   *MemberView
	Spouse   *MemberView
	Children []*FamilyTreeNode
}

// FamilyUsecase assembles family units and trees from the stored edges.
type FamilyUsecase interface {
	// ResolveUnit returns the family unit displayed for id. A member without a spouse is shown
	// through the unit of the parent whose children set contains it.
	ResolveUnit(ctx context.Context, id uuid.UUID) (*MemberView, error)

	// Member returns the member itself with spouse and children populated.
	Member(ctx context.Context, id uuid.UUID) (*MemberView, error)

	// Tree returns every root couple with nested descendants. maxDepth limits the number of
	// generations below the roots; zero means unlimited.
	Tree(ctx context.Context, maxDepth int) ([]*FamilyTreeNode, error)
}
