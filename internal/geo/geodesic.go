package geo

import "math"

// earthRadiusM is the WGS84 mean earth radius.
const earthRadiusM = 6371008.8

// HaversineMeters returns the great-circle distance between two
// lat/lon points in meters. Over the tens-of-meters tolerances used in
// capture verification the difference from a full ellipsoidal solution
// is well under a meter.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// ValidLatLon reports whether the pair is a usable WGS84 coordinate.
func ValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ringContains runs a ray cast against one linear ring. Positions are
// GeoJSON order: lon, lat.
func ringContains(ring [][]float64, lon, lat float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PolygonContains reports whether the lon/lat point lies inside the
// outer ring and outside every hole.
func PolygonContains(rings [][][]float64, lon, lat float64) bool {
	if len(rings) == 0 {
		return false
	}
	if !ringContains(rings[0], lon, lat) {
		return false
	}
	for _, hole := range rings[1:] {
		if ringContains(hole, lon, lat) {
			return false
		}
	}
	return true
}

// UTMZoneSRID picks the EPSG code of the UTM zone covering the given
// lon/lat, so tessellation can run in a meter-based projection local
// to the farm instead of latitude-distorted degrees.
func UTMZoneSRID(lon, lat float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	if lat < 0 {
		return 32700 + zone
	}
	return 32600 + zone
}
