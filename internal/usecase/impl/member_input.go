package impl

import (
	"strings"
	"time"

	"familydir/internal/domain/entity"
	domainerrors "familydir/internal/domain/errors"

	"github.com/google/uuid"
)

// dateOfBirthLayout accepts one or two digit days and months.
const dateOfBirthLayout = "2/1/2006"

// parseDateOfBirth parses a DD/MM/YYYY date.
func parseDateOfBirth(raw string) (time.Time, error) {
	dob, err := time.Parse(dateOfBirthLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, domainerrors.ErrInvalidDate.WithDetails(raw)
	}

	return dob, nil
}

// isNullID reports whether raw stands for "no reference".
func isNullID(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "null", "undefined":
		return true
	}

	return false
}

// parseRequiredRef parses an optional id strictly: blank means none, malformed is an error.
func parseRequiredRef(field, raw string) (*uuid.UUID, error) {
	if isNullID(raw) {
		return nil, nil
	}

	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("invalid " + field + " id: " + raw)
	}

	return &id, nil
}

// parseRequiredRefs parses every id strictly, dropping blanks and duplicates.
func parseRequiredRefs(field string, raws []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raws))
	for _, raw := range raws {
		id, err := parseRequiredRef(field, raw)
		if err != nil {
			return nil, err
		}
		if id != nil {
			ids = append(ids, *id)
		}
	}

	return entity.UniqueIDs(ids), nil
}

// lenientRef is the update-path parse result of one optional id field.
type lenientRef struct {
	set bool       // The field was supplied and well-formed (or blank).
	id  *uuid.UUID // nil clears the reference.
}

// parseLenientRef parses an update-path id: absent and malformed ids leave the field unset,
// blank ids clear it.
func parseLenientRef(raw *string) (lenientRef, bool) {
	if raw == nil {
		return lenientRef{}, true
	}
	if isNullID(*raw) {
		return lenientRef{set: true}, true
	}

	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return lenientRef{}, false
	}

	return lenientRef{set: true, id: &id}, true
}

// parseLenientRefs parses update-path child ids, dropping malformed entries. The second result
// lists the dropped raw values.
func parseLenientRefs(raws []string) ([]uuid.UUID, []string) {
	ids := make([]uuid.UUID, 0, len(raws))
	var dropped []string
	for _, raw := range raws {
		if isNullID(raw) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			dropped = append(dropped, raw)

			continue
		}
		ids = append(ids, id)
	}

	return entity.UniqueIDs(ids), dropped
}
