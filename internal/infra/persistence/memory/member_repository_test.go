package memory

import (
	"context"
	"errors"
	"testing"

	"familydir/internal/domain/entity"
	"familydir/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMember(name string) *entity.Member {
	return &entity.Member{ID: uuid.New(), Name: name}
}

func TestMemberRepository_CreateFindClone(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(NewStore())

	child := newMember("Child")
	require.NoError(t, repo.CreateMember(ctx, child))
	parent := newMember("Parent")
	parent.ChildIDs = []uuid.UUID{child.ID, child.ID}
	require.NoError(t, repo.CreateMember(ctx, parent))
	assert.ErrorIs(t, repo.CreateMember(ctx, parent), repository.ErrMemberAlreadyExists)

	got, err := repo.FindMemberByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{child.ID}, got.ChildIDs)
	assert.False(t, got.CreatedAt.IsZero())

	// Mutating a returned member must not leak into the store.
	got.Name = "changed"
	got.ChildIDs[0] = uuid.New()
	again, err := repo.FindMemberByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Parent", again.Name)
	assert.Equal(t, []uuid.UUID{child.ID}, again.ChildIDs)

	_, err = repo.FindMemberByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrMemberNotFound)
}

func TestMemberRepository_ListAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(NewStore())

	ravi := newMember("Ravi Kumar")
	ravi.Occupation = "Engineer"
	sita := newMember("Sita")
	sita.Address = "12 MG Road, Bengaluru"
	gopal := newMember("Gopal")
	gopal.Phone = "98450 12345"
	for _, m := range []*entity.Member{ravi, sita, gopal} {
		require.NoError(t, repo.CreateMember(ctx, m))
	}

	all, err := repo.FindAllMembers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Ravi Kumar", "Sita", "Gopal"}, []string{all[0].Name, all[1].Name, all[2].Name})

	tests := []struct {
		query string
		want  []uuid.UUID
	}{
		{query: "ENGINEER", want: []uuid.UUID{ravi.ID}},
		{query: "bengaluru", want: []uuid.UUID{sita.ID}},
		{query: "12", want: []uuid.UUID{sita.ID, gopal.ID}},
		{query: "", want: []uuid.UUID{ravi.ID, sita.ID, gopal.ID}},
		{query: "nobody", want: []uuid.UUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			found, err := repo.SearchMembers(ctx, tt.query)
			require.NoError(t, err)
			ids := make([]uuid.UUID, 0, len(found))
			for _, m := range found {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	byIDs, err := repo.FindMembersByIDs(ctx, []uuid.UUID{gopal.ID, uuid.New(), ravi.ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, gopal.ID, byIDs[0].ID)
	assert.Equal(t, ravi.ID, byIDs[1].ID)
}

func TestMemberRepository_Edges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(NewStore())

	a, b, c1, c2 := newMember("A"), newMember("B"), newMember("C1"), newMember("C2")
	for _, m := range []*entity.Member{a, b, c1, c2} {
		require.NoError(t, repo.CreateMember(ctx, m))
	}

	require.NoError(t, repo.SetSpouse(ctx, a.ID, &b.ID))
	require.NoError(t, repo.SetSpouse(ctx, b.ID, &a.ID))
	require.NoError(t, repo.AddChildren(ctx, a.ID, c1.ID, c2.ID, c1.ID))
	require.NoError(t, repo.AddChildren(ctx, b.ID, c1.ID, c2.ID))

	parent, err := repo.FindParentByChildID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, parent.ID)

	parentIDs, err := repo.FindParentIDsByChildID(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, parentIDs)

	require.NoError(t, repo.ReplaceChildren(ctx, a.ID, []uuid.UUID{c2.ID}))
	parent, err = repo.FindParentByChildID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, parent.ID)

	require.NoError(t, repo.RemoveChildEverywhere(ctx, c2.ID))
	_, err = repo.FindParentByChildID(ctx, c2.ID)
	assert.ErrorIs(t, err, repository.ErrMemberNotFound)

	require.NoError(t, repo.ClearSpouseReferences(ctx, a.ID))
	gotB, err := repo.FindMemberByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gotB.HasSpouse())
	assert.Equal(t, []uuid.UUID{c1.ID}, gotB.ChildIDs)

	require.NoError(t, repo.DeleteMember(ctx, b.ID))
	_, err = repo.FindParentByChildID(ctx, c1.ID)
	assert.ErrorIs(t, err, repository.ErrMemberNotFound)
	assert.ErrorIs(t, repo.DeleteMember(ctx, b.ID), repository.ErrMemberNotFound)
	assert.ErrorIs(t, repo.SetSpouse(ctx, b.ID, nil), repository.ErrMemberNotFound)
	assert.ErrorIs(t, repo.AddChildren(ctx, b.ID, c1.ID), repository.ErrMemberNotFound)
}

func TestTransactionManager_Execute(t *testing.T) {
	store := NewStore()
	tm := NewTransactionManager(store)
	m := newMember("Solo")

	err := tm.Execute(context.Background(), func(f repository.RepositoryFactory) error {
		return f.NewMemberRepository().CreateMember(context.Background(), m)
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.Execute(context.Background(), func(repository.RepositoryFactory) error { return boom })
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = tm.Execute(ctx, func(repository.RepositoryFactory) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewMemberRepository(store).FindMemberByID(context.Background(), m.ID)
	assert.NoError(t, err)
}
