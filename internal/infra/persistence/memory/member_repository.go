// Package memory provides an in-process member store used for local runs, the CLI and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"familydir/internal/domain/entity"
	"familydir/internal/domain/repository"

	"github.com/google/uuid"
)

// Store holds members and the child -> parents reverse index.
type Store struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*entity.Member
	order   []uuid.UUID
	parents map[uuid.UUID][]uuid.UUID // child id -> parent ids, in edge insertion order
	now     func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		members: make(map[uuid.UUID]*entity.Member),
		parents: make(map[uuid.UUID][]uuid.UUID),
		now:     time.Now,
	}
}

// memberRepository implements repository.MemberRepository on top of a Store.
type memberRepository struct {
	store *Store
}

// NewMemberRepository is the constructor for the in-memory member repository.
func NewMemberRepository(store *Store) repository.MemberRepository {
	return &memberRepository{store: store}
}

func (repo *memberRepository) CreateMember(_ context.Context, member *entity.Member) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[member.ID]; exists {
		return repository.ErrMemberAlreadyExists
	}

	now := s.now()
	member.CreatedAt = now
	member.UpdatedAt = now

	stored := cloneMember(member)
	stored.ChildIDs = entity.UniqueIDs(member.ChildIDs)
	s.members[member.ID] = stored
	s.order = append(s.order, member.ID)
	for _, childID := range stored.ChildIDs {
		s.parents[childID] = append(s.parents[childID], member.ID)
	}

	return nil
}

func (repo *memberRepository) FindMemberByID(_ context.Context, id uuid.UUID) (*entity.Member, error) {
	s := repo.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[id]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}

	return cloneMember(member), nil
}

func (repo *memberRepository) FindMembersByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Member, error) {
	s := repo.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]*entity.Member, 0, len(ids))
	for _, id := range entity.UniqueIDs(ids) {
		if member, ok := s.members[id]; ok {
			members = append(members, cloneMember(member))
		}
	}

	return members, nil
}

func (repo *memberRepository) FindAllMembers(_ context.Context) ([]*entity.Member, error) {
	return repo.store.filter(func(*entity.Member) bool { return true }), nil
}

func (repo *memberRepository) SearchMembers(_ context.Context, query string) ([]*entity.Member, error) {
	needle := strings.ToLower(query)

	return repo.store.filter(func(m *entity.Member) bool {
		for _, field := range []string{m.Name, m.Phone, m.Occupation, m.Address} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}

		return false
	}), nil
}

func (repo *memberRepository) FindParentByChildID(_ context.Context, childID uuid.UUID) (*entity.Member, error) {
	s := repo.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	parentIDs := s.parents[childID]
	if len(parentIDs) == 0 {
		return nil, repository.ErrMemberNotFound
	}

	return cloneMember(s.members[parentIDs[0]]), nil
}

func (repo *memberRepository) FindParentIDsByChildID(_ context.Context, childID uuid.UUID) ([]uuid.UUID, error) {
	s := repo.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.parents[childID]), nil
}

func (repo *memberRepository) UpdateMember(_ context.Context, member *entity.Member) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[member.ID]
	if !ok {
		return repository.ErrMemberNotFound
	}

	stored.Name = member.Name
	stored.DateOfBirth = cloneTime(member.DateOfBirth)
	stored.Phone = member.Phone
	stored.Occupation = member.Occupation
	stored.Address = member.Address
	stored.About = member.About
	stored.ImageRef = member.ImageRef
	stored.Location = cloneLocation(member.Location)
	stored.UpdatedAt = s.now()
	member.UpdatedAt = stored.UpdatedAt

	return nil
}

func (repo *memberRepository) SetSpouse(_ context.Context, id uuid.UUID, spouseID *uuid.UUID) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[id]
	if !ok {
		return repository.ErrMemberNotFound
	}

	stored.SpouseID = cloneID(spouseID)
	stored.UpdatedAt = s.now()

	return nil
}

func (repo *memberRepository) AddChildren(_ context.Context, parentID uuid.UUID, childIDs ...uuid.UUID) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[parentID]
	if !ok {
		return repository.ErrMemberNotFound
	}

	for _, childID := range entity.UniqueIDs(childIDs) {
		if stored.HasChild(childID) {
			continue
		}
		stored.ChildIDs = append(stored.ChildIDs, childID)
		s.parents[childID] = append(s.parents[childID], parentID)
	}
	stored.UpdatedAt = s.now()

	return nil
}

func (repo *memberRepository) ReplaceChildren(_ context.Context, parentID uuid.UUID, childIDs []uuid.UUID) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[parentID]
	if !ok {
		return repository.ErrMemberNotFound
	}

	for _, childID := range stored.ChildIDs {
		s.unlinkParent(childID, parentID)
	}

	stored.ChildIDs = entity.UniqueIDs(childIDs)
	for _, childID := range stored.ChildIDs {
		s.parents[childID] = append(s.parents[childID], parentID)
	}
	stored.UpdatedAt = s.now()

	return nil
}

func (repo *memberRepository) RemoveChildEverywhere(_ context.Context, childID uuid.UUID) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, parentID := range s.parents[childID] {
		if parent, ok := s.members[parentID]; ok {
			parent.ChildIDs = slices.DeleteFunc(parent.ChildIDs, func(id uuid.UUID) bool { return id == childID })
			parent.UpdatedAt = s.now()
		}
	}
	delete(s.parents, childID)

	return nil
}

func (repo *memberRepository) ClearSpouseReferences(_ context.Context, id uuid.UUID) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, member := range s.members {
		if member.IsSpouse(id) {
			member.SpouseID = nil
			member.UpdatedAt = s.now()
		}
	}

	return nil
}

func (repo *memberRepository) DeleteMember(_ context.Context, id uuid.UUID) error {
	s := repo.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[id]
	if !ok {
		return repository.ErrMemberNotFound
	}

	for _, childID := range stored.ChildIDs {
		s.unlinkParent(childID, id)
	}
	delete(s.members, id)
	s.order = slices.DeleteFunc(s.order, func(existing uuid.UUID) bool { return existing == id })

	return nil
}

// filter returns clones of the members matching keep, in creation order.
func (s *Store) filter(keep func(*entity.Member) bool) []*entity.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]*entity.Member, 0, len(s.order))
	for _, id := range s.order {
		if member := s.members[id]; keep(member) {
			members = append(members, cloneMember(member))
		}
	}

	return members
}

// unlinkParent drops parentID from the reverse index of childID. Callers hold the write lock.
func (s *Store) unlinkParent(childID, parentID uuid.UUID) {
	remaining := slices.DeleteFunc(s.parents[childID], func(id uuid.UUID) bool { return id == parentID })
	if len(remaining) == 0 {
		delete(s.parents, childID)

		return
	}
	s.parents[childID] = remaining
}

func cloneMember(m *entity.Member) *entity.Member {
	if m == nil {
		return nil
	}

	c := *m
	c.DateOfBirth = cloneTime(m.DateOfBirth)
	c.Location = cloneLocation(m.Location)
	c.SpouseID = cloneID(m.SpouseID)
	c.ChildIDs = slices.Clone(m.ChildIDs)
	if c.ChildIDs == nil {
		c.ChildIDs = []uuid.UUID{}
	}

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t

	return &v
}

func cloneLocation(l *entity.Location) *entity.Location {
	if l == nil {
		return nil
	}
	v := *l

	return &v
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id

	return &v
}
