package impl

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"familydir/config"
	deliverycontext "familydir/internal/delivery/context"
	"familydir/internal/domain/entity"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/repository"
	"familydir/internal/domain/service"
	"familydir/internal/infra/metrics"
	"familydir/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

const (
	birthdayLayout       = "02-01-2006"
	defaultNearbyWorkers = 8
)

// directoryService implements the DirectoryUsecase interface.
type directoryService struct {
	memberRepo    repository.MemberRepository
	distances     service.DistanceCalculator
	qrCodes       service.QRCodeService
	presenter     presenter
	nearbyWorkers int
	birthdayZone  *time.Location
	now           func() time.Time
	logger        *slog.Logger
}

// DirectoryServiceParams holds dependencies for DirectoryService, injected by Fx.
type DirectoryServiceParams struct {
	fx.In

	MemberRepo repository.MemberRepository
	Distances  service.DistanceCalculator
	QRCodes    service.QRCodeService
	Images     service.ImageStore
	Config     *config.Config
	Logger     *slog.Logger
}

// NewDirectoryService is the constructor for directoryService.
func NewDirectoryService(params DirectoryServiceParams) usecase.DirectoryUsecase {
	workers := defaultNearbyWorkers
	if params.Config != nil && params.Config.Maps != nil && params.Config.Maps.NearbyWorkers > 0 {
		workers = params.Config.Maps.NearbyWorkers
	}

	zone := time.UTC
	if params.Config != nil && params.Config.Profile != nil && params.Config.Profile.BirthdayTimezone != "" {
		loc, err := time.LoadLocation(params.Config.Profile.BirthdayTimezone)
		if err != nil {
			params.Logger.Warn("Unknown birthday timezone, using UTC",
				slog.String("timezone", params.Config.Profile.BirthdayTimezone), slog.Any("error", err))
		} else {
			zone = loc
		}
	}

	return &directoryService{
		memberRepo:    params.MemberRepo,
		distances:     params.Distances,
		qrCodes:       params.QRCodes,
		presenter:     presenter{images: params.Images},
		nearbyWorkers: workers,
		birthdayZone:  zone,
		now:           time.Now,
		logger:        params.Logger,
	}
}

func (srv *directoryService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListMembers returns every member in creation order.
func (srv *directoryService) ListMembers(ctx context.Context) ([]*usecase.MemberView, error) {
	members, err := srv.memberRepo.FindAllMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return srv.presenter.populateAll(ctx, srv.memberRepo, members)
}

// SearchMembers matches query as a case-insensitive substring of name, phone, occupation or
// address. An empty query lists everyone.
func (srv *directoryService) SearchMembers(ctx context.Context, query string) ([]*usecase.MemberView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return srv.ListMembers(ctx)
	}

	members, err := srv.memberRepo.SearchMembers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search members: %w", err)
	}

	return srv.presenter.populateAll(ctx, srv.memberRepo, members)
}

// Nearby computes the distance to every located member concurrently. Members whose distance
// lookup fails or is not a number are skipped.
func (srv *directoryService) Nearby(ctx context.Context, origin service.Coordinate) ([]*usecase.NearbyMember, error) {
	if !validCoordinate(origin) {
		return nil, domainerrors.ErrInvalidCoordinates.WithDetails(origin.String())
	}

	members, err := srv.memberRepo.FindAllMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	located := slices.DeleteFunc(members, func(m *entity.Member) bool { return !m.HasLocation() })

	var (
		mu      sync.Mutex
		results = make([]*usecase.NearbyMember, 0, len(located))
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(srv.nearbyWorkers)
	for _, m := range located {
		g.Go(func() error {
			to := service.Coordinate{Lat: m.Location.Latitude, Lng: m.Location.Longitude}
			km, err := srv.distances.Distance(gctx, origin, to)
			if err == nil && (math.IsNaN(km) || math.IsInf(km, 0)) {
				err = fmt.Errorf("distance is not a number")
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped++
				srv.log(ctx).Warn("Skipping member without distance", slog.Any("memberID", m.ID), slog.Any("error", err))

				return nil
			}
			results = append(results, &usecase.NearbyMember{MemberView: srv.presenter.view(m), DistanceKm: km})

			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics.NearbySkipped(skipped)

	slices.SortStableFunc(results, func(a, b *usecase.NearbyMember) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}

		return strings.Compare(a.Member.Name, b.Member.Name)
	})

	return results, nil
}

// BirthdaysToday returns members whose day and month of birth match today in the configured
// zone.
func (srv *directoryService) BirthdaysToday(ctx context.Context) ([]*usecase.Birthday, error) {
	members, err := srv.memberRepo.FindAllMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	today := srv.now().In(srv.birthdayZone)
	birthdays := make([]*usecase.Birthday, 0)
	for _, m := range members {
		if m.DateOfBirth == nil {
			continue
		}
		dob := *m.DateOfBirth
		if dob.Day() != today.Day() || dob.Month() != today.Month() {
			continue
		}
		birthdays = append(birthdays, &usecase.Birthday{
			ID:          m.ID,
			Name:        m.Name,
			ImageURL:    srv.presenter.imageURL(m.ImageRef),
			DateOfBirth: dob.Format(birthdayLayout),
		})
	}

	return birthdays, nil
}

// ProfileQR renders the share code of an existing member.
func (srv *directoryService) ProfileQR(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if _, err := srv.memberRepo.FindMemberByID(ctx, id); err != nil {
		return nil, mapMemberNotFound(err)
	}

	png, err := srv.qrCodes.GenerateProfileQR(id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile QR: %w", err)
	}

	return png, nil
}

func validCoordinate(c service.Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}

	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
