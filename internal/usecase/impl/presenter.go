package impl

import (
	"context"
	"fmt"

	"familydir/internal/domain/entity"
	"familydir/internal/domain/repository"
	"familydir/internal/domain/service"
	"familydir/internal/usecase"

	"github.com/google/uuid"
)

// presenter turns stored members into display views.
type presenter struct {
	images service.ImageStore
}

// view decorates a single member without relations.
func (p presenter) view(member *entity.Member) *usecase.MemberView {
	if member == nil {
		return nil
	}

	return &usecase.MemberView{
		Member:       member,
		ImageURL:     p.imageURL(member.ImageRef),
		LocationLink: member.Location.MapsLink(),
		Children:     []*usecase.MemberView{},
	}
}

func (p presenter) imageURL(ref string) string {
	if ref == "" || p.images == nil {
		return ref
	}

	return p.images.URL(ref)
}

// populated decorates member and resolves its spouse and children from byID. Missing
// references are skipped.
func (p presenter) populated(member *entity.Member, byID map[uuid.UUID]*entity.Member) *usecase.MemberView {
	v := p.view(member)
	if member.HasSpouse() {
		if spouse, ok := byID[*member.SpouseID]; ok {
			v.Spouse = p.view(spouse)
		}
	}
	for _, childID := range member.ChildIDs {
		if child, ok := byID[childID]; ok {
			v.Children = append(v.Children, p.view(child))
		}
	}

	return v
}

// populateAll decorates members and resolves their relations with one batched lookup for
// the references that are not already part of members.
func (p presenter) populateAll(ctx context.Context, repo repository.MemberRepository, members []*entity.Member) ([]*usecase.MemberView, error) {
	byID := make(map[uuid.UUID]*entity.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	var missing []uuid.UUID
	for _, m := range members {
		for _, id := range relatedIDs(m) {
			if _, ok := byID[id]; !ok {
				missing = append(missing, id)
			}
		}
	}
	if len(missing) > 0 {
		related, err := repo.FindMembersByIDs(ctx, entity.UniqueIDs(missing))
		if err != nil {
			return nil, fmt.Errorf("failed to load related members: %w", err)
		}
		for _, m := range related {
			byID[m.ID] = m
		}
	}

	views := make([]*usecase.MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, p.populated(m, byID))
	}

	return views, nil
}

func relatedIDs(m *entity.Member) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m.ChildIDs)+1)
	if m.HasSpouse() {
		ids = append(ids, *m.SpouseID)
	}

	return append(ids, m.ChildIDs...)
}
