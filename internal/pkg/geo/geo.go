package geo

import "math"

// Mean Earth radius in meters.
const earthRadius = 6371000.0

// Haversine returns the great-circle distance in meters between two
// points given as decimal-degree latitude/longitude pairs.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Distance returns the Haversine distance rounded to one decimal place,
// the precision attendance distances are recorded and compared with.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Round(Haversine(lat1, lng1, lat2, lng2)*10) / 10
}
