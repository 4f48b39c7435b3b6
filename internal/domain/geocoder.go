package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Importance  float64 // provider ranking score, higher is better
}

// Found reports whether the provider returned coordinates.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves free-form street addresses to coordinates.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, address string) (GeocodingResult, error)
}
