package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for all distance math.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// WGS84 coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := toRadians(lat1)
	rlat2 := toRadians(lat2)
	dlat := toRadians(lat2 - lat1)
	dlng := toRadians(lng2 - lng1)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// ValidCoordinate reports whether lat/lng fall inside the WGS84 envelope.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
