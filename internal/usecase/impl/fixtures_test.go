package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"familydir/config"
	"familydir/internal/domain/entity"
	"familydir/internal/domain/service"
	"familydir/internal/infra/persistence/memory"
	"familydir/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		Maps:    &config.MapsConfig{NearbyWorkers: 4},
		Profile: &config.ProfileConfig{MirrorSpouseDisplay: true, BirthdayTimezone: "Asia/Kolkata"},
		Auth:    &config.AuthConfig{},
	}
}

// fakeImageStore keeps uploads in memory and records deletions.
type fakeImageStore struct {
	mu        sync.Mutex
	objects   map[string]string
	seq       int
	deleted   []string
	uploadErr error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: make(map[string]string)}
}

func (s *fakeImageStore) Upload(_ context.Context, upload *service.ImageUpload) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	body, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ref := fmt.Sprintf("img-%d-%s", s.seq, upload.Filename)
	s.objects[ref] = string(body)

	return ref, nil
}

func (s *fakeImageStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	s.deleted = append(s.deleted, ref)

	return nil
}

func (s *fakeImageStore) Read(_ context.Context, ref string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[ref]
	if !ok {
		return nil, "", service.ErrImageNotFound
	}

	return io.NopCloser(strings.NewReader(body)), "image/jpeg", nil
}

func (s *fakeImageStore) URL(ref string) string {
	if ref == "" {
		return ""
	}

	return "https://cdn.example.com/" + ref
}

func (s *fakeImageStore) deletedRefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.deleted...)
}

type mockLinkResolver struct {
	mock.Mock
}

func (m *mockLinkResolver) ResolveLink(ctx context.Context, link string) (service.Coordinate, error) {
	args := m.Called(ctx, link)

	return args.Get(0).(service.Coordinate), args.Error(1)
}

type mockDistanceCalculator struct {
	mock.Mock
}

func (m *mockDistanceCalculator) Distance(ctx context.Context, from, to service.Coordinate) (float64, error) {
	args := m.Called(ctx, from, to)

	return args.Get(0).(float64), args.Error(1)
}

type stubQRCodes struct{}

func (stubQRCodes) GenerateProfileQR(memberID uuid.UUID) ([]byte, error) {
	return []byte("png:" + memberID.String()), nil
}

func (stubQRCodes) ProfileURL(memberID uuid.UUID) string {
	return "https://family.example.com/profile/" + memberID.String()
}

func (stubQRCodes) ParseProfileURL(string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

// directoryFixture wires every use case onto one in-memory store.
type directoryFixture struct {
	store     *memory.Store
	images    *fakeImageStore
	links     *mockLinkResolver
	distances *mockDistanceCalculator
	members   usecase.MemberUsecase
	family    usecase.FamilyUsecase
	directory usecase.DirectoryUsecase
}

func newDirectoryFixture(t *testing.T, cfg *config.Config) *directoryFixture {
	t.Helper()

	store := memory.NewStore()
	repo := memory.NewMemberRepository(store)
	f := &directoryFixture{
		store:     store,
		images:    newFakeImageStore(),
		links:     new(mockLinkResolver),
		distances: new(mockDistanceCalculator),
	}
	logger := newDiscardLogger()

	f.members = NewMemberService(MemberServiceParams{
		TxManager:  memory.NewTransactionManager(store),
		MemberRepo: repo,
		Images:     f.images,
		Links:      f.links,
		Config:     cfg,
		Logger:     logger,
	})
	f.family = NewFamilyService(FamilyServiceParams{MemberRepo: repo, Images: f.images, Logger: logger})
	f.directory = NewDirectoryService(DirectoryServiceParams{
		MemberRepo: repo,
		Distances:  f.distances,
		QRCodes:    stubQRCodes{},
		Images:     f.images,
		Config:     cfg,
		Logger:     logger,
	})

	t.Cleanup(func() {
		f.links.AssertExpectations(t)
		f.distances.AssertExpectations(t)
	})

	return f
}

// create adds a member with a fixed date of birth and returns it.
func (f *directoryFixture) create(t *testing.T, in usecase.CreateMemberInput) *entity.Member {
	t.Helper()

	if in.DateOfBirth == "" {
		in.DateOfBirth = "01/01/1990"
	}
	m, err := f.members.CreateMember(context.Background(), &in)
	require.NoError(t, err)

	return m
}

func (f *directoryFixture) get(t *testing.T, id uuid.UUID) *entity.Member {
	t.Helper()

	m, err := f.members.GetMember(context.Background(), id)
	require.NoError(t, err)

	return m
}

func strPtr(s string) *string {
	return &s
}

func imageUpload(name string) *service.ImageUpload {
	return &service.ImageUpload{Filename: name, ContentType: "image/jpeg", Body: strings.NewReader("jpeg-bytes")}
}
