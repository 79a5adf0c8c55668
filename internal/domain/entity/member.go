// Package entity contains the core business objects of the project.
package entity

import (
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Location is a point on the map stored as (longitude, latitude).
type Location struct {
	Longitude float64
	Latitude  float64
}

// MapsLink renders the point as a Google Maps link. A nil location renders as "".
func (l *Location) MapsLink() string {
	if l == nil {
		return ""
	}

	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// Member is a person in the family directory.
//
// SpouseID and ChildIDs are the only relationship edges that are stored. Both are written
// exclusively by the member use case so that spouse links stay symmetric and a couple shares
// one children set.
type Member struct {
	ID          uuid.UUID  // Stable identity assigned at creation.
	Name        string     // Display name, never empty.
	DateOfBirth *time.Time // Calendar date of birth, nil when unknown.
	Phone       string
	Occupation  string
	Address     string
	About       string
	ImageRef    string      // Opaque reference into the image store.
	Location    *Location   // Nil means "no location".
	SpouseID    *uuid.UUID  // At most one spouse.
	ChildIDs    []uuid.UUID // Unordered, no duplicates.
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasSpouse reports whether the member is linked to a spouse.
func (m *Member) HasSpouse() bool {
	return m.SpouseID != nil && *m.SpouseID != uuid.Nil
}

// IsSpouse reports whether id is this member's spouse.
func (m *Member) IsSpouse(id uuid.UUID) bool {
	return m.HasSpouse() && *m.SpouseID == id
}

// HasChild reports whether id is in the member's children set.
func (m *Member) HasChild(id uuid.UUID) bool {
	return slices.Contains(m.ChildIDs, id)
}

// HasLocation reports whether the member carries usable coordinates.
func (m *Member) HasLocation() bool {
	return m.Location != nil
}

// FamilyUnit is the display grouping of a member, their spouse and their children.
type FamilyUnit struct {
	Head     *Member
	Spouse   *Member
	Children []*Member
}

// UniqueIDs returns ids without duplicates and without uuid.Nil, preserving first-seen order.
func UniqueIDs(ids ...[]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0)
	for _, group := range ids {
		for _, id := range group {
			if id == uuid.Nil {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	return out
}
