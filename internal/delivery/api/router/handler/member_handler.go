// Package handler contains the HTTP handlers of the API server.
package handler

import (
	"log/slog"
	"net/http"

	"familydir/internal/delivery/api/response"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/service"
	"familydir/internal/errors"
	"familydir/internal/infra/metrics"
	"familydir/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// TreeQuery holds the optional limit on tree depth.
type TreeQuery struct {
	Depth int `query:"depth" validate:"min=0,max=50"`
}

// MemberHandler serves member reads and writes.
type MemberHandler struct {
	members usecase.MemberUsecase
	family  usecase.FamilyUsecase
	images  service.ImageStore
	logger  *slog.Logger
}

// MemberHandlerParams holds dependencies for MemberHandler, injected by Fx.
type MemberHandlerParams struct {
	fx.In

	Members usecase.MemberUsecase
	Family  usecase.FamilyUsecase
	Images  service.ImageStore
	Logger  *slog.Logger
}

// NewMemberHandler is the constructor for MemberHandler.
func NewMemberHandler(params MemberHandlerParams) *MemberHandler {
	return &MemberHandler{
		members: params.Members,
		family:  params.Family,
		images:  params.Images,
		logger:  params.Logger,
	}
}

// GetMember returns the family unit displayed for the member.
func (h *MemberHandler) GetMember(c echo.Context) error {
	id, err := memberIDParam(c)
	if err != nil {
		return err
	}

	unit, err := h.family.ResolveUnit(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newMemberJSON(unit))
}

// Tree returns the descendant tree of every root couple.
func (h *MemberHandler) Tree(c echo.Context) error {
	var query TreeQuery
	if err := c.Bind(&query); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("depth must be a number")
	}
	if err := c.Validate(&query); err != nil {
		return err
	}

	roots, err := h.family.Tree(c.Request().Context(), query.Depth)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newTreeJSON(roots))
}

// CreateMember handles the multipart member form.
func (h *MemberHandler) CreateMember(c echo.Context) (err error) {
	defer func() { metrics.MemberMutation("create", err) }()

	form, err := parseMemberForm(c)
	if err != nil {
		return err
	}
	input, err := form.createInput()
	if err != nil {
		return err
	}

	upload, closer, err := form.openImage()
	if err != nil {
		return err
	}
	defer closer.Close()
	input.Image = upload

	member, err := h.members.CreateMember(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusCreated, memberEntityJSON(member, h.images))
}

// UpdateMember applies the fields present in the form.
func (h *MemberHandler) UpdateMember(c echo.Context) (err error) {
	defer func() { metrics.MemberMutation("update", err) }()

	id, err := memberIDParam(c)
	if err != nil {
		return err
	}

	form, err := parseMemberForm(c)
	if err != nil {
		return err
	}
	input := form.updateInput()

	upload, closer, err := form.openImage()
	if err != nil {
		return err
	}
	defer closer.Close()
	input.Image = upload

	if _, err := h.members.UpdateMember(c.Request().Context(), id, input); err != nil {
		return errors.WithStack(err)
	}

	view, err := h.family.Member(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newMemberJSON(view))
}

// DeleteMember removes the member and returns its last state.
func (h *MemberHandler) DeleteMember(c echo.Context) (err error) {
	defer func() { metrics.MemberMutation("delete", err) }()

	id, err := memberIDParam(c)
	if err != nil {
		return err
	}

	member, err := h.members.DeleteMember(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, memberEntityJSON(member, h.images))
}

func memberIDParam(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domainerrors.ErrInvalidMemberID.WithDetails(raw)
	}

	return id, nil
}
