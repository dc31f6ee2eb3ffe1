package dispatch

import "math"

const earthRadiusKm = 6371

// DistanceKm computes the haversine great-circle distance in kilometres
// between two longitude/latitude pairs.
func DistanceKm(lng1, lat1, lng2, lat2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLng := (lng2 - lng1) * (math.Pi / 180)
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ProximityScore maps a distance to a 0..5 score, decaying linearly to zero
// at 15 km.
func ProximityScore(distanceKm float64) float64 {
	return math.Max(0, 5-distanceKm/3)
}

// MixScore blends rating and proximity into a single composite. Higher is
// better.
func MixScore(rating, distanceKm float64) float64 {
	return rating*0.6 + ProximityScore(distanceKm)*0.4
}
