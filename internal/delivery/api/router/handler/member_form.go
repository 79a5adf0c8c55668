package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"familydir/internal/domain/entity"
	domainerrors "familydir/internal/domain/errors"
	"familydir/internal/domain/service"
	"familydir/internal/errors"
	"familydir/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Form keys accepted by POST and PUT /api/members.
const (
	fieldName       = "name"
	fieldDOB        = "dob"
	fieldPhone      = "phone"
	fieldOccupation = "occupation"
	fieldAddress    = "address"
	fieldAbout      = "about"
	fieldLocation   = "location"
	fieldLatitude   = "latitude"
	fieldLongitude  = "longitude"
	fieldImage      = "image"
	fieldSpouse     = "spouse"
	fieldParent     = "parent"
	fieldChildren   = "children"
)

// memberForm is a parsed member form. It keeps track of which keys were sent so that
// updates can tell an absent field from an empty one.
type memberForm struct {
	values url.Values
	image  *multipart.FileHeader
}

func parseMemberForm(c echo.Context) (*memberForm, error) {
	values, err := c.FormParams()
	if err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("malformed form body: " + err.Error())
	}

	form := &memberForm{values: values}

	fh, err := c.FormFile(fieldImage)
	switch {
	case err == nil:
		form.image = fh
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return nil, domainerrors.ErrValidationFailed.WithDetails("malformed image part: " + err.Error())
	}

	return form, nil
}

func (f *memberForm) has(key string) bool {
	_, ok := f.values[key]

	return ok
}

func (f *memberForm) get(key string) string {
	return strings.TrimSpace(f.values.Get(key))
}

// optional returns nil when key was not sent.
func (f *memberForm) optional(key string) *string {
	if !f.has(key) {
		return nil
	}
	v := f.get(key)

	return &v
}

// children splits comma-separated ids across every "children" value. It returns nil when
// the key was not sent and an empty slice when it was sent blank.
func (f *memberForm) children() []string {
	raws, ok := f.values[fieldChildren]
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(raws))
	for _, raw := range raws {
		for part := range strings.SplitSeq(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}

	return ids
}

// coordinates reads explicit latitude/longitude fields. Both must be present.
func (f *memberForm) coordinates() (*entity.Location, error) {
	if !f.has(fieldLatitude) && !f.has(fieldLongitude) {
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(f.get(fieldLatitude), 64)
	lng, lngErr := strconv.ParseFloat(f.get(fieldLongitude), 64)
	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, domainerrors.ErrInvalidCoordinates.WithDetails("latitude and longitude must both be valid numbers")
	}

	return &entity.Location{Latitude: lat, Longitude: lng}, nil
}

// openImage opens the uploaded file part. The returned closer must be called once the use
// case has finished with the upload.
func (f *memberForm) openImage() (*service.ImageUpload, io.Closer, error) {
	if f.image == nil {
		return nil, io.NopCloser(nil), nil
	}

	file, err := f.image.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open uploaded image")
	}

	return &service.ImageUpload{
		Filename:    f.image.Filename,
		ContentType: f.image.Header.Get(echo.HeaderContentType),
		Body:        file,
	}, file, nil
}

func (f *memberForm) createInput() (*usecase.CreateMemberInput, error) {
	location, err := f.coordinates()
	if err != nil {
		return nil, err
	}

	return &usecase.CreateMemberInput{
		Name:         f.get(fieldName),
		DateOfBirth:  f.get(fieldDOB),
		Phone:        f.get(fieldPhone),
		Occupation:   f.get(fieldOccupation),
		Address:      f.get(fieldAddress),
		About:        f.get(fieldAbout),
		LocationLink: f.get(fieldLocation),
		Location:     location,
		ImageRef:     f.get(fieldImage),
		SpouseID:     f.get(fieldSpouse),
		ParentID:     f.get(fieldParent),
		ChildIDs:     f.children(),
	}, nil
}

func (f *memberForm) updateInput() *usecase.UpdateMemberInput {
	in := &usecase.UpdateMemberInput{
		Name:         f.optional(fieldName),
		DateOfBirth:  f.optional(fieldDOB),
		Phone:        f.optional(fieldPhone),
		Occupation:   f.optional(fieldOccupation),
		Address:      f.optional(fieldAddress),
		About:        f.optional(fieldAbout),
		LocationLink: f.optional(fieldLocation),
		SpouseID:     f.optional(fieldSpouse),
		ParentID:     f.optional(fieldParent),
		ChildIDs:     f.children(),
	}
	if f.image == nil {
		in.ImageRef = f.optional(fieldImage)
	}

	return in
}
