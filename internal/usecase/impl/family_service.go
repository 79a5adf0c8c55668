package impl

import (
	"context"
	"fmt"
	"log/slog"

	deliverycontext "familydir/internal/delivery/context"
	"familydir/internal/domain/entity"
	"familydir/internal/domain/repository"
	"familydir/internal/domain/service"
	"familydir/internal/errors"
	"familydir/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// familyService implements the FamilyUsecase interface.
type familyService struct {
	memberRepo repository.MemberRepository
	presenter  presenter
	logger     *slog.Logger
}

// FamilyServiceParams holds dependencies for FamilyService, injected by Fx.
type FamilyServiceParams struct {
	fx.In

	MemberRepo repository.MemberRepository
	Images     service.ImageStore
	Logger     *slog.Logger
}

// NewFamilyService is the constructor for familyService.
func NewFamilyService(params FamilyServiceParams) usecase.FamilyUsecase {
	return &familyService{
		memberRepo: params.MemberRepo,
		presenter:  presenter{images: params.Images},
		logger:     params.Logger,
	}
}

func (srv *familyService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ResolveUnit returns the member's own unit when it has a spouse. A spouse-less member is
// shown through its parent's unit; without a parent it is shown as its own unit, children
// included.
func (srv *familyService) ResolveUnit(ctx context.Context, id uuid.UUID) (*usecase.MemberView, error) {
	member, err := srv.memberRepo.FindMemberByID(ctx, id)
	if err != nil {
		return nil, mapMemberNotFound(err)
	}

	head := member
	if !member.HasSpouse() {
		parent, err := srv.memberRepo.FindParentByChildID(ctx, id)
		switch {
		case err == nil:
			srv.log(ctx).Debug("Resolved member through parent unit", slog.Any("memberID", id), slog.Any("headID", parent.ID))
			head = parent
		case errors.Is(err, repository.ErrMemberNotFound):
		default:
			return nil, fmt.Errorf("failed to find parent: %w", err)
		}
	}

	views, err := srv.presenter.populateAll(ctx, srv.memberRepo, []*entity.Member{head})
	if err != nil {
		return nil, err
	}

	return views[0], nil
}

// Member returns the member's own view without redirection.
func (srv *familyService) Member(ctx context.Context, id uuid.UUID) (*usecase.MemberView, error) {
	member, err := srv.memberRepo.FindMemberByID(ctx, id)
	if err != nil {
		return nil, mapMemberNotFound(err)
	}

	views, err := srv.presenter.populateAll(ctx, srv.memberRepo, []*entity.Member{member})
	if err != nil {
		return nil, err
	}

	return views[0], nil
}

// Tree returns every root couple with nested descendants.
//
// A root has children, is in no children set, and is not married into one. Each member is
// emitted at most once, so a root whose spouse was already emitted is skipped and corrupt
// cycles terminate.
func (srv *familyService) Tree(ctx context.Context, maxDepth int) ([]*usecase.FamilyTreeNode, error) {
	members, err := srv.memberRepo.FindAllMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	b := &treeBuilder{
		presenter: srv.presenter,
		byID:      make(map[uuid.UUID]*entity.Member, len(members)),
		isChild:   make(map[uuid.UUID]bool),
		emitted:   make(map[uuid.UUID]bool),
		maxDepth:  maxDepth,
	}
	for _, m := range members {
		b.byID[m.ID] = m
		for _, childID := range m.ChildIDs {
			b.isChild[childID] = true
		}
	}

	roots := make([]*usecase.FamilyTreeNode, 0)
	for _, m := range members {
		if !b.isRoot(m) || b.emitted[m.ID] {
			continue
		}
		roots = append(roots, b.node(m, 0))
	}

	return roots, nil
}

type treeBuilder struct {
	presenter presenter
	byID      map[uuid.UUID]*entity.Member
	isChild   map[uuid.UUID]bool
	emitted   map[uuid.UUID]bool
	maxDepth  int
}

func (b *treeBuilder) isRoot(m *entity.Member) bool {
	if len(m.ChildIDs) == 0 || b.isChild[m.ID] {
		return false
	}

	return !m.HasSpouse() || !b.isChild[*m.SpouseID]
}

func (b *treeBuilder) spouseOf(m *entity.Member) *entity.Member {
	if !m.HasSpouse() {
		return nil
	}

	return b.byID[*m.SpouseID]
}

func (b *treeBuilder) node(m *entity.Member, depth int) *usecase.FamilyTreeNode {
	b.emitted[m.ID] = true
	n := &usecase.FamilyTreeNode{
		Member:   b.presenter.view(m),
		Children: []*usecase.FamilyTreeNode{},
	}

	childIDs := m.ChildIDs
	if spouse := b.spouseOf(m); spouse != nil && !b.emitted[spouse.ID] {
		b.emitted[spouse.ID] = true
		n.Spouse = b.presenter.view(spouse)
		childIDs = entity.UniqueIDs(m.ChildIDs, spouse.ChildIDs)
	}

	if b.maxDepth > 0 && depth >= b.maxDepth {
		return n
	}

	for _, childID := range childIDs {
		child, ok := b.byID[childID]
		if !ok || b.emitted[childID] {
			continue
		}
		n.Children = append(n.Children, b.node(child, depth+1))
	}

	return n
}
