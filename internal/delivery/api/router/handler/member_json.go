package handler

import (
	"time"

	"familydir/internal/domain/entity"
	"familydir/internal/usecase"
)

// dobLayout renders dates of birth the way they are submitted.
const dobLayout = "02/01/2006"

// memberJSON is the wire form of a member.
type memberJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	DOB         *string          `json:"dob"`
	Phone       string           `json:"phone"`
	Occupation  string           `json:"occupation"`
	Address     string           `json:"address"`
	About       string           `json:"about"`
	Image       string           `json:"image"`
	Location    *string          `json:"location"`
	Coordinates *coordinatesJSON `json:"coordinates"`
	SpouseID    *string          `json:"spouseId"`
	ChildIDs    []string         `json:"childIds"`
	Spouse      *memberJSON      `json:"spouse,omitempty"`
	Children    []*memberJSON    `json:"children"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type coordinatesJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type nearbyJSON struct {
	*memberJSON
	Distance float64 `json:"distance"`
}

type birthdayJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	DOB   string `json:"dob"`
}

type treeNodeJSON struct {
	Member   *memberJSON     `json:"member"`
	Spouse   *memberJSON     `json:"spouse"`
	Children []*treeNodeJSON `json:"children"`
}

func newMemberJSON(v *usecase.MemberView) *memberJSON {
	if v == nil || v.Member == nil {
		return nil
	}
	m := v.Member

	out := &memberJSON{
		ID:         m.ID.String(),
		Name:       m.Name,
		Phone:      m.Phone,
		Occupation: m.Occupation,
		Address:    m.Address,
		About:      m.About,
		Image:      v.ImageURL,
		ChildIDs:   make([]string, 0, len(m.ChildIDs)),
		Children:   make([]*memberJSON, 0, len(v.Children)),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.DateOfBirth != nil {
		dob := m.DateOfBirth.Format(dobLayout)
		out.DOB = &dob
	}
	if v.LocationLink != "" {
		link := v.LocationLink
		out.Location = &link
	}
	if m.Location != nil {
		out.Coordinates = &coordinatesJSON{Lat: m.Location.Latitude, Lng: m.Location.Longitude}
	}
	if m.HasSpouse() {
		id := m.SpouseID.String()
		out.SpouseID = &id
	}
	for _, id := range m.ChildIDs {
		out.ChildIDs = append(out.ChildIDs, id.String())
	}
	out.Spouse = newMemberJSON(v.Spouse)
	for _, child := range v.Children {
		out.Children = append(out.Children, newMemberJSON(child))
	}

	return out
}

func newMemberListJSON(views []*usecase.MemberView) []*memberJSON {
	out := make([]*memberJSON, 0, len(views))
	for _, v := range views {
		out = append(out, newMemberJSON(v))
	}

	return out
}

func newTreeJSON(nodes []*usecase.FamilyTreeNode) []*treeNodeJSON {
	out := make([]*treeNodeJSON, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &treeNodeJSON{
			Member:   newMemberJSON(n.Member),
			Spouse:   newMemberJSON(n.Spouse),
			Children: newTreeJSON(n.Children),
		})
	}

	return out
}

// imageURLer renders image refs for stored members returned by mutations.
type imageURLer interface {
	URL(ref string) string
}

func memberEntityJSON(m *entity.Member, images imageURLer) *memberJSON {
	return newMemberJSON(&usecase.MemberView{
		Member:       m,
		ImageURL:     images.URL(m.ImageRef),
		LocationLink: m.Location.MapsLink(),
	})
}
