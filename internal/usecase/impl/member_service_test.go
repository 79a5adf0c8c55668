package impl

import (
	"context"
	"testing"

	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/service"
	"familydir/internal/errors"
	"familydir/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMemberService_CreateMember_SpouseAndParent(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())
	ctx := context.Background()

	alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "01/01/1990"})
	bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", DateOfBirth: "02/02/1988", SpouseID: alice.ID.String()})

	require.NotNil(t, f.get(t, alice.ID).SpouseID)
	assert.Equal(t, bob.ID, *f.get(t, alice.ID).SpouseID)
	require.NotNil(t, bob.SpouseID)
	assert.Equal(t, alice.ID, *bob.SpouseID)

	carol := f.create(t, usecase.CreateMemberInput{Name: "Carol", ParentID: alice.ID.String()})

	assert.Equal(t, []uuid.UUID{carol.ID}, f.get(t, alice.ID).ChildIDs)
	assert.Equal(t, []uuid.UUID{carol.ID}, f.get(t, bob.ID).ChildIDs)

	unit, err := f.family.ResolveUnit(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, unit.Member.ID)
	require.NotNil(t, unit.Spouse)
	assert.Equal(t, bob.ID, unit.Spouse.Member.ID)
	require.Len(t, unit.Children, 1)
	assert.Equal(t, carol.ID, unit.Children[0].Member.ID)

	deleted, err := f.members.DeleteMember(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, deleted.ID)

	after := f.get(t, alice.ID)
	assert.Nil(t, after.SpouseID)
	assert.Equal(t, []uuid.UUID{carol.ID}, after.ChildIDs)
}

func TestMemberService_CreateMember_MergesChildrenWithSpouse(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())

	carol := f.create(t, usecase.CreateMemberInput{Name: "Carol"})
	ed := f.create(t, usecase.CreateMemberInput{Name: "Ed"})
	alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", ChildIDs: []string{carol.ID.String()}})
	bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String(), ChildIDs: []string{ed.ID.String()}})

	assert.ElementsMatch(t, []uuid.UUID{carol.ID, ed.ID}, f.get(t, alice.ID).ChildIDs)
	assert.ElementsMatch(t, []uuid.UUID{carol.ID, ed.ID}, f.get(t, bob.ID).ChildIDs)
}

func TestMemberService_CreateMember_DisplacesPreviousSpouse(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())

	alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
	bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})
	dan := f.create(t, usecase.CreateMemberInput{Name: "Dan", SpouseID: alice.ID.String()})

	assert.Equal(t, dan.ID, *f.get(t, alice.ID).SpouseID)
	assert.Equal(t, alice.ID, *f.get(t, dan.ID).SpouseID)
	assert.Nil(t, f.get(t, bob.ID).SpouseID)
}

func TestMemberService_CreateMember_Validation(t *testing.T) {
	missing := uuid.New()

	tests := []struct {
		name    string
		input   usecase.CreateMemberInput
		wantErr error
	}{
		{
			name:    "missing name",
			input:   usecase.CreateMemberInput{Name: "  ", DateOfBirth: "01/01/1990"},
			wantErr: domainerrors.ErrValidationFailed,
		},
		{
			name:    "missing date of birth",
			input:   usecase.CreateMemberInput{Name: "Alice"},
			wantErr: domainerrors.ErrInvalidDate,
		},
		{
			name:    "iso date",
			input:   usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "1990-01-01"},
			wantErr: domainerrors.ErrInvalidDate,
		},
		{
			name:    "impossible date",
			input:   usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "31/02/1990"},
			wantErr: domainerrors.ErrInvalidDate,
		},
		{
			name:    "malformed spouse id",
			input:   usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "01/01/1990", SpouseID: "not-a-uuid"},
			wantErr: domainerrors.ErrValidationFailed,
		},
		{
			name:    "unknown parent",
			input:   usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "01/01/1990", ParentID: missing.String()},
			wantErr: domainerrors.ErrRelatedMemberNotFound,
		},
		{
			name:    "unknown child",
			input:   usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "01/01/1990", ChildIDs: []string{missing.String()}},
			wantErr: domainerrors.ErrRelatedMemberNotFound,
		},
		{
			name:    "spouse listed as child",
			input:   usecase.CreateMemberInput{Name: "Bob", DateOfBirth: "01/01/1990", SpouseID: missing.String(), ChildIDs: []string{missing.String()}},
			wantErr: domainerrors.ErrSelfReference,
		},
		{
			name:    "spouse listed as parent",
			input:   usecase.CreateMemberInput{Name: "Bob", DateOfBirth: "01/01/1990", SpouseID: missing.String(), ParentID: missing.String()},
			wantErr: domainerrors.ErrSelfReference,
		},
		{
			name:    "parent listed as child",
			input:   usecase.CreateMemberInput{Name: "Bob", DateOfBirth: "01/01/1990", ParentID: missing.String(), ChildIDs: []string{missing.String()}},
			wantErr: domainerrors.ErrSelfReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDirectoryFixture(t, newTestConfig())
			ctx := context.Background()

			_, err := f.members.CreateMember(ctx, &tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			all, err := f.directory.ListMembers(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestMemberService_CreateMember_AcceptsNullReferences(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())

	m := f.create(t, usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "1/2/1990", SpouseID: "null", ParentID: "undefined", ChildIDs: []string{""}})

	assert.Nil(t, m.SpouseID)
	assert.Empty(t, m.ChildIDs)
	assert.Equal(t, 1, m.DateOfBirth.Day())
	assert.Equal(t, 2, int(m.DateOfBirth.Month()))
}

func TestMemberService_UpdateMember_PartialFields(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())
	ctx := context.Background()

	alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", Phone: "98450", Occupation: "Teacher", Address: "Udupi"})

	updated, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{
		Occupation:  strPtr(""),
		DateOfBirth: strPtr(""),
		Address:     strPtr(" Manipal "),
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "98450", updated.Phone)
	assert.Empty(t, updated.Occupation)
	assert.Equal(t, "Manipal", updated.Address)
	assert.Equal(t, alice.DateOfBirth, updated.DateOfBirth)

	_, err = f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{Name: strPtr("")})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{DateOfBirth: strPtr("1990/01/01")})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidDate)

	_, err = f.members.UpdateMember(ctx, uuid.New(), &usecase.UpdateMemberInput{Name: strPtr("Ghost")})
	assert.ErrorIs(t, err, domainerrors.ErrMemberNotFound)
}

func TestMemberService_UpdateMember_Spouse(t *testing.T) {
	ctx := context.Background()

	t.Run("switching spouse leaves the previous one single", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})
		dan := f.create(t, usecase.CreateMemberInput{Name: "Dan"})

		_, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{SpouseID: strPtr(dan.ID.String())})
		require.NoError(t, err)

		assert.Equal(t, dan.ID, *f.get(t, alice.ID).SpouseID)
		assert.Equal(t, alice.ID, *f.get(t, dan.ID).SpouseID)
		assert.Nil(t, f.get(t, bob.ID).SpouseID)
	})

	t.Run("empty spouse clears both sides", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})

		_, err := f.members.UpdateMember(ctx, bob.ID, &usecase.UpdateMemberInput{SpouseID: strPtr("")})
		require.NoError(t, err)

		assert.Nil(t, f.get(t, alice.ID).SpouseID)
		assert.Nil(t, f.get(t, bob.ID).SpouseID)
	})

	t.Run("malformed spouse is ignored", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})

		updated, err := f.members.UpdateMember(ctx, bob.ID, &usecase.UpdateMemberInput{
			SpouseID: strPtr("definitely-not-an-id"),
			Phone:    strPtr("111"),
		})
		require.NoError(t, err)

		assert.Equal(t, "111", updated.Phone)
		assert.Equal(t, alice.ID, *updated.SpouseID)
		assert.Equal(t, bob.ID, *f.get(t, alice.ID).SpouseID)
	})

	t.Run("self reference is rejected", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})

		_, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{SpouseID: strPtr(alice.ID.String())})
		assert.ErrorIs(t, err, domainerrors.ErrSelfReference)

		_, err = f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{ChildIDs: []string{alice.ID.String()}})
		assert.ErrorIs(t, err, domainerrors.ErrSelfReference)
	})

	t.Run("spouse cannot become a child of the couple", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})
		carol := f.create(t, usecase.CreateMemberInput{Name: "Carol"})

		tests := []struct {
			name  string
			input usecase.UpdateMemberInput
		}{
			{name: "current spouse as child", input: usecase.UpdateMemberInput{ChildIDs: []string{bob.ID.String()}}},
			{name: "current spouse as parent", input: usecase.UpdateMemberInput{ParentID: strPtr(bob.ID.String())}},
			{name: "new spouse as child", input: usecase.UpdateMemberInput{SpouseID: strPtr(carol.ID.String()), ChildIDs: []string{carol.ID.String()}}},
			{name: "new spouse as parent", input: usecase.UpdateMemberInput{SpouseID: strPtr(carol.ID.String()), ParentID: strPtr(carol.ID.String())}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.members.UpdateMember(ctx, alice.ID, &tt.input)
				assert.ErrorIs(t, err, domainerrors.ErrSelfReference)

				assert.Equal(t, bob.ID, *f.get(t, alice.ID).SpouseID)
				assert.Empty(t, f.get(t, alice.ID).ChildIDs)
				assert.Empty(t, f.get(t, bob.ID).ChildIDs)
				assert.Nil(t, f.get(t, carol.ID).SpouseID)
			})
		}
	})

	t.Run("marrying a child is rejected", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		kid := f.create(t, usecase.CreateMemberInput{Name: "Kid"})
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", ChildIDs: []string{kid.ID.String()}})

		_, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{SpouseID: strPtr(kid.ID.String())})
		assert.ErrorIs(t, err, domainerrors.ErrSelfReference)
		assert.Nil(t, f.get(t, kid.ID).SpouseID)
		assert.Empty(t, f.get(t, kid.ID).ChildIDs)
	})

	t.Run("unknown spouse is rejected", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})

		_, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{SpouseID: strPtr(uuid.NewString())})
		assert.ErrorIs(t, err, domainerrors.ErrRelatedMemberNotFound)
	})
}

func TestMemberService_UpdateMember_Children(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())
	ctx := context.Background()

	alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
	bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})
	carol := f.create(t, usecase.CreateMemberInput{Name: "Carol"})
	ed := f.create(t, usecase.CreateMemberInput{Name: "Ed"})

	_, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{
		ChildIDs: []string{carol.ID.String(), "garbage", ed.ID.String(), carol.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{carol.ID, ed.ID}, f.get(t, alice.ID).ChildIDs)
	assert.Equal(t, []uuid.UUID{carol.ID, ed.ID}, f.get(t, bob.ID).ChildIDs)

	// Absent children leave the set alone.
	_, err = f.members.UpdateMember(ctx, bob.ID, &usecase.UpdateMemberInput{Phone: strPtr("42")})
	require.NoError(t, err)
	assert.Len(t, f.get(t, bob.ID).ChildIDs, 2)

	_, err = f.members.UpdateMember(ctx, bob.ID, &usecase.UpdateMemberInput{ChildIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, f.get(t, alice.ID).ChildIDs)
	assert.Empty(t, f.get(t, bob.ID).ChildIDs)

	_, err = f.members.UpdateMember(ctx, ed.ID, &usecase.UpdateMemberInput{ParentID: strPtr(bob.ID.String())})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ed.ID}, f.get(t, alice.ID).ChildIDs)
	assert.Equal(t, []uuid.UUID{ed.ID}, f.get(t, bob.ID).ChildIDs)
}

func TestMemberService_DeleteMember(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())
	ctx := context.Background()

	alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
	bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})
	carol := f.create(t, usecase.CreateMemberInput{Name: "Carol", ParentID: alice.ID.String()})

	_, err := f.members.DeleteMember(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, f.get(t, alice.ID).ChildIDs)
	assert.Empty(t, f.get(t, bob.ID).ChildIDs)

	_, err = f.members.DeleteMember(ctx, carol.ID)
	assert.ErrorIs(t, err, domainerrors.ErrMemberNotFound)

	_, err = f.members.GetMember(ctx, carol.ID)
	assert.ErrorIs(t, err, domainerrors.ErrMemberNotFound)
}

func TestMemberService_Images(t *testing.T) {
	ctx := context.Background()

	t.Run("new image mirrors to spouse and releases the old one", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String(), Image: imageUpload("bob.jpg")})

		require.NotEmpty(t, bob.ImageRef)
		assert.Equal(t, bob.ImageRef, f.get(t, alice.ID).ImageRef)

		updated, err := f.members.UpdateMember(ctx, bob.ID, &usecase.UpdateMemberInput{Image: imageUpload("couple.jpg")})
		require.NoError(t, err)

		assert.NotEqual(t, bob.ImageRef, updated.ImageRef)
		assert.Equal(t, updated.ImageRef, f.get(t, alice.ID).ImageRef)
		assert.Equal(t, []string{bob.ImageRef}, f.images.deletedRefs())
	})

	t.Run("spouse photo replaced by mirroring is released", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", Image: imageUpload("alice.jpg")})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String(), Image: imageUpload("bob.jpg")})

		assert.Equal(t, bob.ImageRef, f.get(t, alice.ID).ImageRef)
		assert.Equal(t, []string{alice.ImageRef}, f.images.deletedRefs())
	})

	t.Run("mirrored update releases the spouse's own photo", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", Image: imageUpload("alice.jpg")})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String()})
		require.Empty(t, bob.ImageRef)

		updated, err := f.members.UpdateMember(ctx, bob.ID, &usecase.UpdateMemberInput{Image: imageUpload("couple.jpg")})
		require.NoError(t, err)

		assert.Equal(t, updated.ImageRef, f.get(t, alice.ID).ImageRef)
		assert.Equal(t, []string{alice.ImageRef}, f.images.deletedRefs())
	})

	t.Run("photo still shown by a former partner is kept", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		carol := f.create(t, usecase.CreateMemberInput{Name: "Carol"})
		dan := f.create(t, usecase.CreateMemberInput{Name: "Dan", SpouseID: carol.ID.String(), Image: imageUpload("dan.jpg")})
		require.Equal(t, dan.ImageRef, f.get(t, carol.ID).ImageRef)

		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", SpouseID: carol.ID.String(), Image: imageUpload("alice.jpg")})

		assert.Nil(t, f.get(t, dan.ID).SpouseID)
		assert.Equal(t, alice.ImageRef, f.get(t, carol.ID).ImageRef)
		assert.Equal(t, dan.ImageRef, f.get(t, dan.ID).ImageRef)
		assert.Empty(t, f.images.deletedRefs())
	})

	t.Run("image still shown by spouse is kept", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.Profile.MirrorSpouseDisplay = false
		f := newDirectoryFixture(t, cfg)

		alice := f.create(t, usecase.CreateMemberInput{Name: "Alice"})
		bob := f.create(t, usecase.CreateMemberInput{Name: "Bob", SpouseID: alice.ID.String(), Image: imageUpload("bob.jpg")})
		assert.Empty(t, f.get(t, alice.ID).ImageRef)

		_, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{ImageRef: strPtr(bob.ImageRef)})
		require.NoError(t, err)

		_, err = f.members.UpdateMember(ctx, bob.ID, &usecase.UpdateMemberInput{Image: imageUpload("new.jpg")})
		require.NoError(t, err)
		assert.Empty(t, f.images.deletedRefs())

		// Alice is now the only holder of the old photo.
		_, err = f.members.DeleteMember(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{bob.ImageRef}, f.images.deletedRefs())
	})

	t.Run("upload failure is an adapter error", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())
		f.images.uploadErr = errors.New("bucket unavailable")

		_, err := f.members.CreateMember(ctx, &usecase.CreateMemberInput{Name: "Alice", DateOfBirth: "01/01/1990", Image: imageUpload("a.jpg")})

		var adapterErr *domainerrors.AdapterError
		require.ErrorAs(t, err, &adapterErr)
		assert.Equal(t, "image store", adapterErr.Adapter())
		assert.Contains(t, adapterErr.Message(), "bucket unavailable")
	})

	t.Run("failed create releases the uploaded image", func(t *testing.T) {
		f := newDirectoryFixture(t, newTestConfig())

		_, err := f.members.CreateMember(ctx, &usecase.CreateMemberInput{
			Name:        "Alice",
			DateOfBirth: "01/01/1990",
			SpouseID:    uuid.NewString(),
			Image:       imageUpload("a.jpg"),
		})
		assert.ErrorIs(t, err, domainerrors.ErrRelatedMemberNotFound)
		assert.Len(t, f.images.deletedRefs(), 1)
	})
}

func TestMemberService_Location(t *testing.T) {
	f := newDirectoryFixture(t, newTestConfig())
	ctx := context.Background()

	link := "https://maps.app.goo.gl/abc"
	f.links.On("ResolveLink", mock.Anything, link).Return(service.Coordinate{Lat: 13.34, Lng: 74.74}, nil).Once()
	f.links.On("ResolveLink", mock.Anything, "https://bad.example.com").Return(service.Coordinate{}, errors.New("no coordinates in link")).Once()

	alice := f.create(t, usecase.CreateMemberInput{Name: "Alice", LocationLink: link})
	require.NotNil(t, alice.Location)
	assert.InDelta(t, 13.34, alice.Location.Latitude, 1e-9)
	assert.InDelta(t, 74.74, alice.Location.Longitude, 1e-9)

	_, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{LocationLink: strPtr("https://bad.example.com")})
	var adapterErr *domainerrors.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "geocoder", adapterErr.Adapter())
	assert.NotNil(t, f.get(t, alice.ID).Location)

	updated, err := f.members.UpdateMember(ctx, alice.ID, &usecase.UpdateMemberInput{LocationLink: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Location)
}
