package impl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"familydir/config"
	deliverycontext "familydir/internal/delivery/context"
	"familydir/internal/domain/entity"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/repository"
	"familydir/internal/domain/service"
	"familydir/internal/errors"
	"familydir/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const (
	adapterImageStore = "image store"
	adapterGeocoder   = "geocoder"
)

// memberService implements the MemberUsecase interface. It is the only writer of spouse and
// children edges.
type memberService struct {
	txManager           repository.TransactionManager
	memberRepo          repository.MemberRepository
	images              service.ImageStore
	links               service.LinkResolver
	mirrorSpouseDisplay bool
	logger              *slog.Logger
}

// MemberServiceParams holds dependencies for MemberService, injected by Fx.
type MemberServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	MemberRepo repository.MemberRepository
	Images     service.ImageStore
	Links      service.LinkResolver
	Config     *config.Config
	Logger     *slog.Logger
}

// NewMemberService is the constructor for memberService.
func NewMemberService(params MemberServiceParams) usecase.MemberUsecase {
	mirror := true
	if params.Config != nil && params.Config.Profile != nil {
		mirror = params.Config.Profile.MirrorSpouseDisplay
	}

	return &memberService{
		txManager:           params.TxManager,
		memberRepo:          params.MemberRepo,
		images:              params.Images,
		links:               params.Links,
		mirrorSpouseDisplay: mirror,
		logger:              params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *memberService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// GetMember returns the stored member without family-unit resolution.
func (srv *memberService) GetMember(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	member, err := srv.memberRepo.FindMemberByID(ctx, id)
	if err != nil {
		return nil, mapMemberNotFound(err)
	}

	return member, nil
}

// CreateMember stores a new member, links it to its spouse and parent, and mirrors the
// children set across the couple.
func (srv *memberService) CreateMember(ctx context.Context, input *usecase.CreateMemberInput) (*entity.Member, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("name is required")
	}

	dob, err := parseDateOfBirth(input.DateOfBirth)
	if err != nil {
		return nil, err
	}

	spouseID, err := parseRequiredRef("spouse", input.SpouseID)
	if err != nil {
		return nil, err
	}
	parentID, err := parseRequiredRef("parent", input.ParentID)
	if err != nil {
		return nil, err
	}
	childIDs, err := parseRequiredRefs("child", input.ChildIDs)
	if err != nil {
		return nil, err
	}
	if err := checkRelationConflicts(spouseID, parentID, childIDs); err != nil {
		return nil, err
	}

	location := input.Location
	if link := strings.TrimSpace(input.LocationLink); link != "" {
		location, err = srv.resolveLocation(ctx, link)
		if err != nil {
			return nil, err
		}
	}

	imageRef := strings.TrimSpace(input.ImageRef)
	uploaded := false
	if input.Image != nil {
		imageRef, err = srv.uploadImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		uploaded = true
	}

	member := &entity.Member{
		ID:          uuid.New(),
		Name:        name,
		DateOfBirth: &dob,
		Phone:       strings.TrimSpace(input.Phone),
		Occupation:  strings.TrimSpace(input.Occupation),
		Address:     strings.TrimSpace(input.Address),
		About:       strings.TrimSpace(input.About),
		ImageRef:    imageRef,
		Location:    location,
		SpouseID:    spouseID,
		ChildIDs:    childIDs,
	}

	var displacedImage staleImage
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewMemberRepository()

		spouse, err := findRelated(ctx, repo, spouseID)
		if err != nil {
			return err
		}
		parent, err := findRelated(ctx, repo, parentID)
		if err != nil {
			return err
		}
		if err := ensureAllExist(ctx, repo, childIDs); err != nil {
			return err
		}

		if spouse != nil {
			// The couple shares one children set from the start.
			member.ChildIDs = entity.UniqueIDs(member.ChildIDs, spouse.ChildIDs)
		}

		if err := repo.CreateMember(ctx, member); err != nil {
			return fmt.Errorf("failed to create member: %w", err)
		}

		if spouse != nil {
			if displacedImage, err = srv.linkSpouse(ctx, repo, member, spouse, nil); err != nil {
				return err
			}
		}

		if parent != nil {
			if err := addChildToCouple(ctx, repo, parent, member.ID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to create member", slog.String("name", name), slog.Any("error", err))
		if uploaded {
			srv.releaseImage(ctx, imageRef)
		}

		return nil, err
	}

	srv.releaseStaleImage(ctx, displacedImage)

	srv.log(ctx).Info("Member created", slog.Any("memberID", member.ID))

	return srv.GetMember(ctx, member.ID)
}

// UpdateMember applies a partial update and propagates relationship changes to the spouse
// and parent records.
func (srv *memberService) UpdateMember(ctx context.Context, id uuid.UUID, input *usecase.UpdateMemberInput) (*entity.Member, error) {
	if _, err := srv.GetMember(ctx, id); err != nil {
		return nil, err
	}

	spouseRef, ok := parseLenientRef(input.SpouseID)
	if !ok {
		srv.log(ctx).Warn("Ignoring malformed spouse id", slog.Any("memberID", id), slog.String("spouse", *input.SpouseID))
	}
	parentRef, ok := parseLenientRef(input.ParentID)
	if !ok {
		srv.log(ctx).Warn("Ignoring malformed parent id", slog.Any("memberID", id), slog.String("parent", *input.ParentID))
	}
	var childIDs []uuid.UUID
	if input.ChildIDs != nil {
		var dropped []string
		childIDs, dropped = parseLenientRefs(input.ChildIDs)
		if len(dropped) > 0 {
			srv.log(ctx).Warn("Ignoring malformed child ids", slog.Any("memberID", id), slog.Any("children", dropped))
		}
	}

	if spouseRef.id != nil && *spouseRef.id == id {
		return nil, domainerrors.ErrSelfReference.WithDetails("spouse")
	}
	if parentRef.id != nil && *parentRef.id == id {
		return nil, domainerrors.ErrSelfReference.WithDetails("parent")
	}
	if slices.Contains(childIDs, id) {
		return nil, domainerrors.ErrSelfReference.WithDetails("children")
	}

	scalars, err := srv.prepareScalarUpdate(ctx, input)
	if err != nil {
		return nil, err
	}

	var (
		previousImage  string
		displacedImage staleImage
		spouseAfter    *uuid.UUID
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewMemberRepository()

		current, err := repo.FindMemberByID(ctx, id)
		if err != nil {
			return mapMemberNotFound(err)
		}
		previousImage = current.ImageRef
		previousAbout := current.About

		newSpouse, err := findRelated(ctx, repo, spouseRef.id)
		if err != nil {
			return err
		}
		parent, err := findRelated(ctx, repo, parentRef.id)
		if err != nil {
			return err
		}
		if err := ensureAllExist(ctx, repo, childIDs); err != nil {
			return err
		}

		spouseID := current.SpouseID
		if spouseRef.set {
			spouseID = spouseRef.id
		}
		if err := checkRelationConflicts(spouseID, parentRef.id, childIDs); err != nil {
			return err
		}
		if newSpouse != nil && childIDs == nil && (current.HasChild(newSpouse.ID) || newSpouse.HasChild(current.ID)) {
			// Merging the couple's children would list one partner as its own child.
			return domainerrors.ErrSelfReference.WithDetails("spouse is a child of the couple")
		}

		scalars.apply(current)
		if err := repo.UpdateMember(ctx, current); err != nil {
			return fmt.Errorf("failed to update member: %w", mapMemberNotFound(err))
		}

		spouseChanged := spouseRef.set && !sameRef(current.SpouseID, spouseRef.id)
		if spouseChanged {
			if err := srv.unlinkSpouse(ctx, repo, current); err != nil {
				return err
			}
			current.SpouseID = nil
		}

		if childIDs != nil {
			current.ChildIDs = childIDs
			if err := repo.ReplaceChildren(ctx, current.ID, childIDs); err != nil {
				return fmt.Errorf("failed to replace children: %w", err)
			}
		}

		switch {
		case spouseChanged && newSpouse != nil:
			if displacedImage, err = srv.linkSpouse(ctx, repo, current, newSpouse, childIDs); err != nil {
				return err
			}
		case current.HasSpouse():
			spouse, err := repo.FindMemberByID(ctx, *current.SpouseID)
			if err != nil {
				return fmt.Errorf("failed to load spouse: %w", err)
			}
			if childIDs != nil {
				if err := repo.ReplaceChildren(ctx, spouse.ID, childIDs); err != nil {
					return fmt.Errorf("failed to mirror children to spouse: %w", err)
				}
			}
			if displacedImage, err = srv.mirrorDisplayChange(ctx, repo, spouse, previousImage, current.ImageRef, previousAbout, current.About); err != nil {
				return err
			}
		}

		if parent != nil {
			if err := addChildToCouple(ctx, repo, parent, current.ID); err != nil {
				return err
			}
		}

		spouseAfter = current.SpouseID

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to update member", slog.Any("memberID", id), slog.Any("error", err))
		if scalars.uploadedImage != "" {
			srv.releaseImage(ctx, scalars.uploadedImage)
		}

		return nil, err
	}

	if scalars.imageRef != nil && previousImage != "" && previousImage != *scalars.imageRef {
		srv.releaseImageUnlessShared(ctx, previousImage, spouseAfter)
	}
	if displacedImage.ref != previousImage {
		srv.releaseStaleImage(ctx, displacedImage)
	}

	srv.log(ctx).Info("Member updated", slog.Any("memberID", id))

	return srv.GetMember(ctx, id)
}

// DeleteMember removes the member, clears its spouse's link and drops it from every children
// set. The member's image is released unless the spouse still shows it.
func (srv *memberService) DeleteMember(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	var deleted *entity.Member
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewMemberRepository()

		member, err := repo.FindMemberByID(ctx, id)
		if err != nil {
			return mapMemberNotFound(err)
		}

		if err := repo.RemoveChildEverywhere(ctx, id); err != nil {
			return fmt.Errorf("failed to remove child references: %w", err)
		}
		if err := repo.ClearSpouseReferences(ctx, id); err != nil {
			return fmt.Errorf("failed to clear spouse references: %w", err)
		}
		if err := repo.DeleteMember(ctx, id); err != nil {
			return fmt.Errorf("failed to delete member: %w", mapMemberNotFound(err))
		}

		deleted = member

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to delete member", slog.Any("memberID", id), slog.Any("error", err))

		return nil, err
	}

	if deleted.ImageRef != "" {
		srv.releaseImageUnlessShared(ctx, deleted.ImageRef, deleted.SpouseID)
	}

	srv.log(ctx).Info("Member deleted", slog.Any("memberID", id))

	return deleted, nil
}

// linkSpouse pairs member with spouse. A partner previously linked to spouse is left single.
// When childIDs is nil the couple's children sets are merged; otherwise both get childIDs.
// It returns the spouse's image replaced by the member's image, if any.
func (srv *memberService) linkSpouse(ctx context.Context, repo repository.MemberRepository, member, spouse *entity.Member, childIDs []uuid.UUID) (staleImage, error) {
	var formerPartner *uuid.UUID
	if spouse.HasSpouse() && !spouse.IsSpouse(member.ID) {
		formerPartner = spouse.SpouseID
		if err := repo.SetSpouse(ctx, *formerPartner, nil); err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
			return staleImage{}, fmt.Errorf("failed to clear displaced spouse: %w", err)
		}
		srv.log(ctx).Debug("Displaced previous spouse", slog.Any("memberID", spouse.ID), slog.Any("displacedID", *formerPartner))
	}

	if err := repo.SetSpouse(ctx, spouse.ID, &member.ID); err != nil {
		return staleImage{}, fmt.Errorf("failed to link spouse: %w", err)
	}
	if err := repo.SetSpouse(ctx, member.ID, &spouse.ID); err != nil {
		return staleImage{}, fmt.Errorf("failed to link member to spouse: %w", err)
	}
	member.SpouseID = &spouse.ID

	shared := childIDs
	if shared == nil {
		shared = entity.UniqueIDs(member.ChildIDs, spouse.ChildIDs)
	}
	if err := repo.ReplaceChildren(ctx, member.ID, shared); err != nil {
		return staleImage{}, fmt.Errorf("failed to share children: %w", err)
	}
	if err := repo.ReplaceChildren(ctx, spouse.ID, shared); err != nil {
		return staleImage{}, fmt.Errorf("failed to share children with spouse: %w", err)
	}
	member.ChildIDs = shared

	if !srv.mirrorSpouseDisplay {
		return staleImage{}, nil
	}

	var displaced staleImage
	changed := false
	if member.ImageRef != "" && spouse.ImageRef != member.ImageRef {
		displaced = staleImage{ref: spouse.ImageRef, holder: formerPartner}
		spouse.ImageRef = member.ImageRef
		changed = true
	}
	if member.About != "" && spouse.About != member.About {
		spouse.About = member.About
		changed = true
	}
	if !changed {
		return staleImage{}, nil
	}

	if err := repo.UpdateMember(ctx, spouse); err != nil {
		return staleImage{}, fmt.Errorf("failed to mirror profile to spouse: %w", err)
	}

	return displaced, nil
}

// unlinkSpouse clears the member's current spouse link on both sides.
func (srv *memberService) unlinkSpouse(ctx context.Context, repo repository.MemberRepository, member *entity.Member) error {
	if !member.HasSpouse() {
		return nil
	}

	previous := *member.SpouseID
	if err := repo.SetSpouse(ctx, previous, nil); err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
		return fmt.Errorf("failed to clear previous spouse: %w", err)
	}
	if err := repo.SetSpouse(ctx, member.ID, nil); err != nil {
		return fmt.Errorf("failed to clear spouse: %w", err)
	}

	return nil
}

// mirrorDisplayChange carries an image or about change over to the spouse when the spouse
// was showing the old value or the new value is non-empty. It returns the spouse's own image
// ref that the change replaced, if any.
func (srv *memberService) mirrorDisplayChange(ctx context.Context, repo repository.MemberRepository, spouse *entity.Member, oldImage, newImage, oldAbout, newAbout string) (staleImage, error) {
	if !srv.mirrorSpouseDisplay {
		return staleImage{}, nil
	}

	var displaced staleImage
	changed := false
	if oldImage != newImage && (newImage != "" || spouse.ImageRef == oldImage) && spouse.ImageRef != newImage {
		if spouse.ImageRef != oldImage {
			displaced = staleImage{ref: spouse.ImageRef}
		}
		spouse.ImageRef = newImage
		changed = true
	}
	if oldAbout != newAbout && (newAbout != "" || spouse.About == oldAbout) && spouse.About != newAbout {
		spouse.About = newAbout
		changed = true
	}
	if !changed {
		return staleImage{}, nil
	}

	if err := repo.UpdateMember(ctx, spouse); err != nil {
		return staleImage{}, fmt.Errorf("failed to mirror profile to spouse: %w", err)
	}

	return displaced, nil
}

// checkRelationConflicts rejects relationship inputs that would make the couple's shared
// children set list a partner, or make one partner the parent of the other.
func checkRelationConflicts(spouseID, parentID *uuid.UUID, childIDs []uuid.UUID) error {
	if parentID != nil && slices.Contains(childIDs, *parentID) {
		return domainerrors.ErrSelfReference.WithDetails("parent is listed as a child")
	}
	if spouseID == nil {
		return nil
	}
	if slices.Contains(childIDs, *spouseID) {
		return domainerrors.ErrSelfReference.WithDetails("spouse is listed as a child")
	}
	if parentID != nil && *parentID == *spouseID {
		return domainerrors.ErrSelfReference.WithDetails("spouse is listed as parent")
	}

	return nil
}

// addChildToCouple adds childID to the parent's children set and to the set of the parent's
// spouse.
func addChildToCouple(ctx context.Context, repo repository.MemberRepository, parent *entity.Member, childID uuid.UUID) error {
	if err := repo.AddChildren(ctx, parent.ID, childID); err != nil {
		return fmt.Errorf("failed to add child to parent: %w", err)
	}

	if !parent.HasSpouse() || *parent.SpouseID == childID {
		return nil
	}

	if err := repo.AddChildren(ctx, *parent.SpouseID, childID); err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
		return fmt.Errorf("failed to add child to parent's spouse: %w", err)
	}

	return nil
}

func (srv *memberService) resolveLocation(ctx context.Context, link string) (*entity.Location, error) {
	coord, err := srv.links.ResolveLink(ctx, link)
	if err != nil {
		srv.log(ctx).Warn("Failed to resolve map link", slog.String("link", link), slog.Any("error", err))

		return nil, domainerrors.NewAdapterError(adapterGeocoder, err)
	}

	return &entity.Location{Longitude: coord.Lng, Latitude: coord.Lat}, nil
}

func (srv *memberService) uploadImage(ctx context.Context, upload *service.ImageUpload) (string, error) {
	ref, err := srv.images.Upload(ctx, upload)
	if err != nil {
		srv.log(ctx).Warn("Failed to upload image", slog.String("filename", upload.Filename), slog.Any("error", err))

		return "", domainerrors.NewAdapterError(adapterImageStore, err)
	}

	return ref, nil
}

// releaseImage deletes ref best-effort.
func (srv *memberService) releaseImage(ctx context.Context, ref string) {
	if err := srv.images.Delete(ctx, ref); err != nil {
		srv.log(ctx).Warn("Failed to delete image", slog.String("imageRef", ref), slog.Any("error", err))
	}
}

// staleImage is an image ref that a spouse stopped showing; holder may still show it.
type staleImage struct {
	ref    string
	holder *uuid.UUID
}

func (srv *memberService) releaseStaleImage(ctx context.Context, img staleImage) {
	if img.ref == "" {
		return
	}
	srv.releaseImageUnlessShared(ctx, img.ref, img.holder)
}

// releaseImageUnlessShared deletes ref best-effort unless the spouse still references it.
func (srv *memberService) releaseImageUnlessShared(ctx context.Context, ref string, spouseID *uuid.UUID) {
	if spouseID != nil {
		spouse, err := srv.memberRepo.FindMemberByID(ctx, *spouseID)
		if err == nil && spouse.ImageRef == ref {
			return
		}
	}

	srv.releaseImage(ctx, ref)
}

// scalarUpdate is the validated scalar part of an UpdateMemberInput.
type scalarUpdate struct {
	input         *usecase.UpdateMemberInput
	name          *string
	dob           *time.Time
	location      **entity.Location
	imageRef      *string
	uploadedImage string
}

func (srv *memberService) prepareScalarUpdate(ctx context.Context, input *usecase.UpdateMemberInput) (*scalarUpdate, error) {
	update := &scalarUpdate{input: input}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domainerrors.ErrValidationFailed.WithDetails("name is required")
		}
		update.name = &name
	}

	if input.DateOfBirth != nil && strings.TrimSpace(*input.DateOfBirth) != "" {
		dob, err := parseDateOfBirth(*input.DateOfBirth)
		if err != nil {
			return nil, err
		}
		update.dob = &dob
	}

	if input.LocationLink != nil {
		var location *entity.Location
		if link := strings.TrimSpace(*input.LocationLink); link != "" {
			resolved, err := srv.resolveLocation(ctx, link)
			if err != nil {
				return nil, err
			}
			location = resolved
		}
		update.location = &location
	}

	switch {
	case input.Image != nil:
		ref, err := srv.uploadImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		update.imageRef = &ref
		update.uploadedImage = ref
	case input.ImageRef != nil:
		ref := strings.TrimSpace(*input.ImageRef)
		update.imageRef = &ref
	}

	return update, nil
}

func (u *scalarUpdate) apply(member *entity.Member) {
	if u.name != nil {
		member.Name = *u.name
	}
	if u.dob != nil {
		member.DateOfBirth = u.dob
	}
	if u.input.Phone != nil {
		member.Phone = strings.TrimSpace(*u.input.Phone)
	}
	if u.input.Occupation != nil {
		member.Occupation = strings.TrimSpace(*u.input.Occupation)
	}
	if u.input.Address != nil {
		member.Address = strings.TrimSpace(*u.input.Address)
	}
	if u.input.About != nil {
		member.About = strings.TrimSpace(*u.input.About)
	}
	if u.location != nil {
		member.Location = *u.location
	}
	if u.imageRef != nil {
		member.ImageRef = *u.imageRef
	}
}

// findRelated loads a referenced member; a missing member is a client error.
func findRelated(ctx context.Context, repo repository.MemberRepository, id *uuid.UUID) (*entity.Member, error) {
	if id == nil {
		return nil, nil
	}

	member, err := repo.FindMemberByID(ctx, *id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, domainerrors.ErrRelatedMemberNotFound.WithDetails(id.String())
		}

		return nil, fmt.Errorf("failed to load related member: %w", err)
	}

	return member, nil
}

// ensureAllExist checks that every id refers to a stored member.
func ensureAllExist(ctx context.Context, repo repository.MemberRepository, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	found, err := repo.FindMembersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load children: %w", err)
	}
	if len(found) == len(ids) {
		return nil
	}

	present := make(map[uuid.UUID]struct{}, len(found))
	for _, m := range found {
		present[m.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return domainerrors.ErrRelatedMemberNotFound.WithDetails(id.String())
		}
	}

	return nil
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

func mapMemberNotFound(err error) error {
	if errors.Is(err, repository.ErrMemberNotFound) {
		return domainerrors.ErrMemberNotFound
	}

	return err
}
