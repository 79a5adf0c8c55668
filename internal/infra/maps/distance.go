package maps

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"familydir/internal/domain/service"
	"familydir/internal/errors"
	"familydir/internal/infra/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const metersPerKilometer = 1000.0

// DistanceCalculator implements service.DistanceCalculator. With an api key it asks the
// Directions API for the driving distance; without one it returns the great-circle distance.
// Results are cached per coordinate pair.
type DistanceCalculator struct {
	client *client
	cache  *expirable.LRU[string, float64]
}

// NewDistanceCalculator is the constructor for DistanceCalculator.
func NewDistanceCalculator(params Params) service.DistanceCalculator {
	cfg := params.Config.Maps
	if !cfg.HasAPIKey() {
		params.Logger.Warn("Maps api key not configured, nearby distances use great-circle fallback")
	}

	return &DistanceCalculator{
		client: newClient(cfg, params.Logger),
		cache:  expirable.NewLRU[string, float64](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Distance returns the distance between from and to in kilometers.
func (d *DistanceCalculator) Distance(ctx context.Context, from, to service.Coordinate) (float64, error) {
	key := cacheKey(from, to)
	if km, ok := d.cache.Get(key); ok {
		metrics.DistanceCacheLookup(true)

		return km, nil
	}
	metrics.DistanceCacheLookup(false)

	var (
		km  float64
		err error
	)
	if d.client.hasAPIKey() {
		km, err = d.roadDistance(ctx, from, to)
	} else {
		km = haversineKm(from, to)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(km) || math.IsInf(km, 0) {
		return 0, errors.Errorf("distance between %s and %s is not a number", from, to)
	}

	d.cache.Add(key, km)

	return km, nil
}

func (d *DistanceCalculator) roadDistance(ctx context.Context, from, to service.Coordinate) (float64, error) {
	var resp struct {
		apiStatus
		Routes []struct {
			Legs []struct {
				Distance struct {
					Value float64 `json:"value"`
				} `json:"distance"`
			} `json:"legs"`
		} `json:"routes"`
	}

	params := url.Values{"origin": {from.String()}, "destination": {to.String()}}
	if err := d.client.getJSON(ctx, "directions", "/maps/api/directions/json", params, &resp); err != nil {
		return 0, err
	}
	if err := resp.err("directions"); err != nil {
		return 0, err
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return 0, errors.New("directions returned no route")
	}

	return resp.Routes[0].Legs[0].Distance.Value / metersPerKilometer, nil
}

func haversineKm(from, to service.Coordinate) float64 {
	return geo.Distance(orb.Point{from.Lng, from.Lat}, orb.Point{to.Lng, to.Lat}) / metersPerKilometer
}

func cacheKey(from, to service.Coordinate) string {
	return fmt.Sprintf("%s|%s", from, to)
}
