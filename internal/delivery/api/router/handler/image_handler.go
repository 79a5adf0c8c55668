package handler

import (
	"net/http"

	"familydir/internal/domain/service"
	"familydir/internal/errors"

	"github.com/labstack/echo/v4"
)

// ImageHandler streams stored member photos.
type ImageHandler struct {
	images service.ImageStore
}

// NewImageHandler is the constructor for ImageHandler.
func NewImageHandler(images service.ImageStore) *ImageHandler {
	return &ImageHandler{images: images}
}

// Serve streams the object named by the wildcard path.
func (h *ImageHandler) Serve(c echo.Context) error {
	r, contentType, err := h.images.Read(c.Request().Context(), c.Param("*"))
	if err != nil {
		if errors.Is(err, service.ErrImageNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "image not found")
		}

		return errors.WithStack(err)
	}
	defer r.Close()

	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")

	return c.Stream(http.StatusOK, contentType, r)
}
