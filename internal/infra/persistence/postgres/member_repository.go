package postgres

import (
	"context"
	"strings"
	"time"

	"familydir/internal/domain/entity"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/repository"
	"familydir/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memberScalarColumns lists the columns UpdateMember is allowed to write.
var memberScalarColumns = []string{
	"name", "date_of_birth", "phone", "occupation", "address", "about",
	"image_ref", "longitude", "latitude", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// memberRepository implements the domain.MemberRepository interface.
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository is the constructor for memberRepository.
func NewMemberRepository(db *gorm.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

// CreateMember persists a new member including its initial spouse and children edges.
func (repo *memberRepository) CreateMember(ctx context.Context, member *entity.Member) error {
	memberM := fromMemberDomain(member)

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(memberM).Error; err != nil {
			return errors.WithStack(err)
		}

		return insertChildEdges(tx, member.ID, member.ChildIDs)
	})
	if err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrMemberAlreadyExists
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required member information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create member")
	}

	member.CreatedAt = memberM.CreatedAt
	member.UpdatedAt = memberM.UpdatedAt

	return nil
}

// FindMemberByID retrieves a member with its spouse id and children ids.
func (repo *memberRepository) FindMemberByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	var memberM model.MemberModel
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&memberM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMemberNotFound
		}

		return nil, errors.Wrap(err, "failed to find member by ID")
	}

	members, err := repo.withChildren(ctx, []model.MemberModel{memberM})
	if err != nil {
		return nil, err
	}

	return members[0], nil
}

// FindMembersByIDs retrieves the members that exist among ids, in the order of ids.
func (repo *memberRepository) FindMembersByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Member, error) {
	if len(ids) == 0 {
		return []*entity.Member{}, nil
	}

	var memberModels []model.MemberModel
	if err := repo.db.WithContext(ctx).Where("id IN ?", ids).Find(&memberModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find members by IDs")
	}

	members, err := repo.withChildren(ctx, memberModels)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Member, len(members))
	for _, member := range members {
		byID[member.ID] = member
	}

	ordered := make([]*entity.Member, 0, len(members))
	for _, id := range ids {
		if member, ok := byID[id]; ok {
			ordered = append(ordered, member)
			delete(byID, id)
		}
	}

	return ordered, nil
}

// FindAllMembers returns every member ordered by creation time.
func (repo *memberRepository) FindAllMembers(ctx context.Context) ([]*entity.Member, error) {
	var memberModels []model.MemberModel
	if err := repo.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&memberModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find all members")
	}

	return repo.withChildren(ctx, memberModels)
}

// SearchMembers matches query against name, phone, occupation and address.
func (repo *memberRepository) SearchMembers(ctx context.Context, query string) ([]*entity.Member, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	var memberModels []model.MemberModel
	err := repo.db.WithContext(ctx).
		Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\' OR LOWER(occupation) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern,
		).
		Order("created_at ASC, id ASC").
		Find(&memberModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to search members")
	}

	return repo.withChildren(ctx, memberModels)
}

// FindParentByChildID returns the parent whose edge to childID was recorded first.
func (repo *memberRepository) FindParentByChildID(ctx context.Context, childID uuid.UUID) (*entity.Member, error) {
	var edge model.MemberChildModel
	err := repo.db.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("created_at ASC, parent_id ASC").
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMemberNotFound
		}

		return nil, errors.Wrap(err, "failed to find parent by child ID")
	}

	return repo.FindMemberByID(ctx, edge.ParentID)
}

// FindParentIDsByChildID returns every member whose children set contains childID.
func (repo *memberRepository) FindParentIDsByChildID(ctx context.Context, childID uuid.UUID) ([]uuid.UUID, error) {
	var parentIDs []uuid.UUID
	err := repo.db.WithContext(ctx).
		Model(&model.MemberChildModel{}).
		Where("child_id = ?", childID).
		Order("created_at ASC, parent_id ASC").
		Pluck("parent_id", &parentIDs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find parent IDs by child ID")
	}

	return parentIDs, nil
}

// UpdateMember saves the scalar fields of an existing member.
func (repo *memberRepository) UpdateMember(ctx context.Context, member *entity.Member) error {
	memberM := fromMemberDomain(member)
	memberM.UpdatedAt = time.Now()

	result := repo.db.WithContext(ctx).
		Model(&model.MemberModel{}).
		Where("id = ?", member.ID).
		Select(memberScalarColumns).
		Updates(memberM)
	if result.Error != nil {
		if isNotNullConstraintViolation(result.Error) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required member information")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update member")
	}

	if result.RowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	member.UpdatedAt = memberM.UpdatedAt

	return nil
}

// SetSpouse overwrites the spouse reference of one member.
func (repo *memberRepository) SetSpouse(ctx context.Context, id uuid.UUID, spouseID *uuid.UUID) error {
	var value any = gorm.Expr("NULL")
	if spouseID != nil {
		value = *spouseID
	}

	result := repo.db.WithContext(ctx).
		Model(&model.MemberModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"spouse_id": value, "updated_at": time.Now()})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to set spouse")
	}

	if result.RowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

// AddChildren adds childIDs to the children set of parentID.
func (repo *memberRepository) AddChildren(ctx context.Context, parentID uuid.UUID, childIDs ...uuid.UUID) error {
	if err := repo.ensureExists(ctx, parentID); err != nil {
		return err
	}

	if err := insertChildEdges(repo.db.WithContext(ctx), parentID, childIDs); err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to add children")
	}

	return nil
}

// ReplaceChildren overwrites the children set of parentID with exactly childIDs.
func (repo *memberRepository) ReplaceChildren(ctx context.Context, parentID uuid.UUID, childIDs []uuid.UUID) error {
	if err := repo.ensureExists(ctx, parentID); err != nil {
		return err
	}

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", parentID).Delete(&model.MemberChildModel{}).Error; err != nil {
			return errors.WithStack(err)
		}

		return insertChildEdges(tx, parentID, childIDs)
	})
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to replace children")
	}

	return nil
}

// RemoveChildEverywhere removes childID from every children set that contains it.
func (repo *memberRepository) RemoveChildEverywhere(ctx context.Context, childID uuid.UUID) error {
	err := repo.db.WithContext(ctx).Where("child_id = ?", childID).Delete(&model.MemberChildModel{}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to remove child references")
	}

	return nil
}

// ClearSpouseReferences clears the spouse field of every member pointing at id.
func (repo *memberRepository) ClearSpouseReferences(ctx context.Context, id uuid.UUID) error {
	err := repo.db.WithContext(ctx).
		Model(&model.MemberModel{}).
		Where("spouse_id = ?", id).
		Updates(map[string]any{"spouse_id": gorm.Expr("NULL"), "updated_at": time.Now()}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to clear spouse references")
	}

	return nil
}

// DeleteMember removes a member and its own children edges.
func (repo *memberRepository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	var rowsAffected int64
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&model.MemberChildModel{}).Error; err != nil {
			return errors.WithStack(err)
		}

		result := tx.Where("id = ?", id).Delete(&model.MemberModel{})
		if result.Error != nil {
			return errors.WithStack(result.Error)
		}
		rowsAffected = result.RowsAffected

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete member")
	}

	// If no rows were affected, it means the member was not found.
	if rowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

func (repo *memberRepository) ensureExists(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.MemberModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errors.Wrap(err, "failed to check member existence")
	}

	if count == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

// withChildren loads the children edges of memberModels and maps them to domain members.
func (repo *memberRepository) withChildren(ctx context.Context, memberModels []model.MemberModel) ([]*entity.Member, error) {
	members := make([]*entity.Member, 0, len(memberModels))
	if len(memberModels) == 0 {
		return members, nil
	}

	parentIDs := make([]uuid.UUID, 0, len(memberModels))
	for i := range memberModels {
		parentIDs = append(parentIDs, memberModels[i].ID)
	}

	var edges []model.MemberChildModel
	err := repo.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC, child_id ASC").
		Find(&edges).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load children")
	}

	childrenByParent := make(map[uuid.UUID][]uuid.UUID, len(memberModels))
	for _, edge := range edges {
		childrenByParent[edge.ParentID] = append(childrenByParent[edge.ParentID], edge.ChildID)
	}

	for i := range memberModels {
		member := toMemberDomain(&memberModels[i])
		if childIDs, ok := childrenByParent[member.ID]; ok {
			member.ChildIDs = childIDs
		}
		members = append(members, member)
	}

	return members, nil
}

func insertChildEdges(tx *gorm.DB, parentID uuid.UUID, childIDs []uuid.UUID) error {
	childIDs = entity.UniqueIDs(childIDs)
	if len(childIDs) == 0 {
		return nil
	}

	now := time.Now()
	edges := make([]model.MemberChildModel, 0, len(childIDs))
	for i, childID := range childIDs {
		edges = append(edges, model.MemberChildModel{
			ParentID: parentID,
			ChildID:  childID,
			// Keep submission order stable for readers ordering by created_at.
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edges).Error

	return errors.WithStack(err)
}

// --- Mapper Functions ---

// toMemberDomain converts a GORM MemberModel to a domain Member entity.
func toMemberDomain(data *model.MemberModel) *entity.Member {
	if data == nil {
		return nil
	}

	member := &entity.Member{
		ID:          data.ID,
		Name:        data.Name,
		DateOfBirth: data.DateOfBirth,
		Phone:       data.Phone,
		Occupation:  data.Occupation,
		Address:     data.Address,
		About:       data.About,
		ImageRef:    data.ImageRef,
		SpouseID:    data.SpouseID,
		ChildIDs:    []uuid.UUID{},
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}

	if data.Longitude != nil && data.Latitude != nil {
		member.Location = &entity.Location{
			Longitude: *data.Longitude,
			Latitude:  *data.Latitude,
		}
	}

	return member
}

// fromMemberDomain converts a domain Member entity to a GORM MemberModel.
func fromMemberDomain(data *entity.Member) *model.MemberModel {
	if data == nil {
		return nil
	}

	memberM := &model.MemberModel{
		ID:          data.ID,
		Name:        data.Name,
		DateOfBirth: data.DateOfBirth,
		Phone:       data.Phone,
		Occupation:  data.Occupation,
		Address:     data.Address,
		About:       data.About,
		ImageRef:    data.ImageRef,
		SpouseID:    data.SpouseID,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}

	if data.Location != nil {
		lng, lat := data.Location.Longitude, data.Location.Latitude
		memberM.Longitude = &lng
		memberM.Latitude = &lat
	}

	return memberM
}
