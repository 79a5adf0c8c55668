package handler

import (
	"net/http"
	"strconv"

	"familydir/internal/delivery/api/response"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/service"
	"familydir/internal/errors"
	"familydir/internal/usecase"

	"github.com/labstack/echo/v4"
)

// NearbyQuery holds the caller's position.
type NearbyQuery struct {
	Lat string `query:"lat" validate:"required,latitude"`
	Lng string `query:"lng" validate:"required,longitude"`
}

// DirectoryHandler serves the list views over all members.
type DirectoryHandler struct {
	directory usecase.DirectoryUsecase
}

// NewDirectoryHandler is the constructor for DirectoryHandler.
func NewDirectoryHandler(directory usecase.DirectoryUsecase) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListMembers returns every member.
func (h *DirectoryHandler) ListMembers(c echo.Context) error {
	views, err := h.directory.ListMembers(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newMemberListJSON(views))
}

// Search matches the "query" parameter against name, phone, occupation and address.
func (h *DirectoryHandler) Search(c echo.Context) error {
	views, err := h.directory.SearchMembers(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newMemberListJSON(views))
}

// Nearby lists located members by distance from lat/lng.
func (h *DirectoryHandler) Nearby(c echo.Context) error {
	var query NearbyQuery
	if err := c.Bind(&query); err != nil {
		return domainerrors.ErrInvalidCoordinates.WithDetails(err.Error())
	}
	if err := c.Validate(&query); err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			return domainerrors.ErrInvalidCoordinates.WithDetails(appErr.Details())
		}

		return errors.WithStack(err)
	}

	lat, latErr := strconv.ParseFloat(query.Lat, 64)
	lng, lngErr := strconv.ParseFloat(query.Lng, 64)
	if latErr != nil || lngErr != nil {
		return domainerrors.ErrInvalidCoordinates
	}

	results, err := h.directory.Nearby(c.Request().Context(), service.Coordinate{Lat: lat, Lng: lng})
	if err != nil {
		return errors.WithStack(err)
	}

	out := make([]*nearbyJSON, 0, len(results))
	for _, r := range results {
		out = append(out, &nearbyJSON{memberJSON: newMemberJSON(r.MemberView), Distance: r.DistanceKm})
	}

	return response.JSON(c, http.StatusOK, out)
}

// BirthdaysToday lists members born on today's day and month.
func (h *DirectoryHandler) BirthdaysToday(c echo.Context) error {
	birthdays, err := h.directory.BirthdaysToday(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	out := make([]*birthdayJSON, 0, len(birthdays))
	for _, b := range birthdays {
		out = append(out, &birthdayJSON{ID: b.ID.String(), Name: b.Name, Image: b.ImageURL, DOB: b.DateOfBirth})
	}

	return response.JSON(c, http.StatusOK, out)
}

// ProfileQR returns a PNG share code for the member's profile page.
func (h *DirectoryHandler) ProfileQR(c echo.Context) error {
	id, err := memberIDParam(c)
	if err != nil {
		return err
	}

	png, err := h.directory.ProfileQR(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}
