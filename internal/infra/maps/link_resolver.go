package maps

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"familydir/internal/domain/service"
	"familydir/internal/errors"
)

// Coordinate patterns, tried in order against the (expanded) link.
var coordinatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`/place/.*?@(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`[?&]q=(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`([-+]?\d+\.\d+),([-+]?\d+\.\d+)`),
}

var pathNumberPattern = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// LinkResolver implements service.LinkResolver for Google Maps links.
type LinkResolver struct {
	client *client
}

// NewLinkResolver is the constructor for LinkResolver.
func NewLinkResolver(params Params) service.LinkResolver {
	return &LinkResolver{client: newClient(params.Config.Maps, params.Logger)}
}

// ResolveLink extracts coordinates from link. Short links are expanded first; links without
// coordinates fall back to Places details and then to geocoding the place name.
func (r *LinkResolver) ResolveLink(ctx context.Context, link string) (service.Coordinate, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return service.Coordinate{}, errors.New("empty map link")
	}

	if isShortLink(link) {
		expanded, err := r.client.expand(ctx, link)
		if err != nil {
			return service.Coordinate{}, err
		}
		r.client.logger.DebugContext(ctx, "Expanded short map link", "link", link, "expanded", expanded)
		link = expanded
	}

	u, err := url.Parse(link)
	if err != nil {
		return service.Coordinate{}, errors.Wrap(err, "invalid map link")
	}

	if coord, ok := matchCoordinates(link); ok {
		return coord, nil
	}

	if placeID := extractPlaceID(u); placeID != "" {
		return r.placeDetails(ctx, placeID)
	}

	if coord, ok := coordinatesFromPath(u.EscapedPath() + "?" + u.RawQuery); ok {
		return coord, nil
	}

	name := extractPlaceName(u)
	if name == "" {
		return service.Coordinate{}, errors.New("no valid location information found in URL")
	}

	return r.geocode(ctx, name)
}

func (r *LinkResolver) placeDetails(ctx context.Context, placeID string) (service.Coordinate, error) {
	var resp struct {
		apiStatus
		Result struct {
			Geometry geometry `json:"geometry"`
		} `json:"result"`
	}

	params := url.Values{"place_id": {placeID}, "fields": {"geometry"}}
	if err := r.client.getJSON(ctx, "places", "/maps/api/place/details/json", params, &resp); err != nil {
		return service.Coordinate{}, err
	}
	if err := resp.err("place details"); err != nil {
		return service.Coordinate{}, err
	}

	loc := resp.Result.Geometry.Location

	return service.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func (r *LinkResolver) geocode(ctx context.Context, address string) (service.Coordinate, error) {
	var resp struct {
		apiStatus
		Results []struct {
			Geometry geometry `json:"geometry"`
		} `json:"results"`
	}

	params := url.Values{"address": {address}}
	if err := r.client.getJSON(ctx, "geocoder", "/maps/api/geocode/json", params, &resp); err != nil {
		return service.Coordinate{}, err
	}
	if err := resp.err("geocoding"); err != nil {
		return service.Coordinate{}, err
	}
	if len(resp.Results) == 0 {
		return service.Coordinate{}, errors.New("geocoding returned no results")
	}

	loc := resp.Results[0].Geometry.Location

	return service.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func isShortLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	return strings.Contains(u.Host, "goo.gl")
}

func matchCoordinates(link string) (service.Coordinate, bool) {
	candidates := []string{link}
	if unescaped, err := url.QueryUnescape(link); err == nil && unescaped != link {
		candidates = append(candidates, unescaped)
	}

	for _, pattern := range coordinatePatterns {
		for _, candidate := range candidates {
			m := pattern.FindStringSubmatch(candidate)
			if m == nil {
				continue
			}
			if coord, ok := parseCoordinate(m[1], m[2]); ok {
				return coord, true
			}
		}
	}

	return service.Coordinate{}, false
}

func coordinatesFromPath(path string) (service.Coordinate, bool) {
	numbers := pathNumberPattern.FindAllString(path, 2)
	if len(numbers) < 2 {
		return service.Coordinate{}, false
	}

	return parseCoordinate(numbers[0], numbers[1])
}

func parseCoordinate(latText, lngText string) (service.Coordinate, bool) {
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return service.Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(lngText, 64)
	if err != nil {
		return service.Coordinate{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return service.Coordinate{}, false
	}

	return service.Coordinate{Lat: lat, Lng: lng}, true
}

func extractPlaceID(u *url.URL) string {
	if q := u.Query().Get("q"); strings.HasPrefix(q, "place_id:") {
		return strings.TrimPrefix(q, "place_id:")
	}

	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part == "place" && i+1 < len(parts) && strings.HasPrefix(parts[i+1], "place_id:") {
			return strings.TrimPrefix(parts[i+1], "place_id:")
		}
	}

	return ""
}

func extractPlaceName(u *url.URL) string {
	query := u.Query()
	if name := query.Get("query"); name != "" {
		return name
	}
	if name := query.Get("q"); name != "" {
		return name
	}

	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part == "place" && i+1 < len(parts) && parts[i+1] != "" {
			return strings.ReplaceAll(parts[i+1], "+", " ")
		}
	}

	return strings.Trim(strings.ReplaceAll(u.Path, "+", " "), "/ ")
}
