package service

import (
	"context"
	"fmt"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the coordinate as "lat,lng".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// LinkResolver turns a maps link pasted by a user into coordinates.
type LinkResolver interface {
	ResolveLink(ctx context.Context, link string) (Coordinate, error)
}

// DistanceCalculator returns the road distance between two points in kilometers.
type DistanceCalculator interface {
	Distance(ctx context.Context, from, to Coordinate) (float64, error)
}
