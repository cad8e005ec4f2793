// Package services – EmergencyService
//
// Nearby emergency services lookup. The directory is a fixed in-process
// dataset; distance is great-circle and the ETA estimate assumes urban
// ambulance speed. No external geocoding dependency is involved.
package services

import (
	"math"
	"sort"
	"time"
)

// EmergencyService finds nearby ambulance services for a coordinate.
type EmergencyService struct {
	directory []AmbulanceService
}

// AmbulanceService is one directory entry, with distance and ETA filled in
// per query.
type AmbulanceService struct {
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	DistanceKm float64 `json:"distance_km"`
	ETAMinutes int     `json:"eta_minutes"`
}

// defaultDirectory is the built-in service list used when no custom
// directory is supplied.
var defaultDirectory = []AmbulanceService{
	{Name: "City General Ambulance", Phone: "102", Latitude: 28.6139, Longitude: 77.2090},
	{Name: "Metro Emergency Response", Phone: "108", Latitude: 28.5355, Longitude: 77.3910},
	{Name: "LifeLine Ambulance Service", Phone: "1099", Latitude: 28.7041, Longitude: 77.1025},
	{Name: "Rapid Care Medical Transport", Phone: "102", Latitude: 28.4595, Longitude: 77.0266},
	{Name: "St. Mary's Hospital Ambulance", Phone: "108", Latitude: 28.6304, Longitude: 77.2177},
}

// avgAmbulanceSpeedKmh is the assumed average speed for ETA estimates.
const avgAmbulanceSpeedKmh = 40.0

// NewEmergencyService returns a service over the built-in directory.
func NewEmergencyService() *EmergencyService {
	return &EmergencyService{directory: defaultDirectory}
}

// NewEmergencyServiceWith returns a service over a custom directory.
func NewEmergencyServiceWith(directory []AmbulanceService) *EmergencyService {
	return &EmergencyService{directory: directory}
}

// FindNearby returns directory entries within radiusKm of the coordinate,
// ordered by distance ascending, with distance and ETA filled in. A radius
// <= 0 defaults to 50km.
func (s *EmergencyService) FindNearby(lat, lon, radiusKm float64) []AmbulanceService {
	if radiusKm <= 0 {
		radiusKm = 50
	}
	var out []AmbulanceService
	for _, svc := range s.directory {
		d := haversineKm(lat, lon, svc.Latitude, svc.Longitude)
		if d > radiusKm {
			continue
		}
		svc.DistanceKm = math.Round(d*10) / 10
		svc.ETAMinutes = etaMinutes(d)
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// etaMinutes estimates travel time for a distance at the assumed speed,
// never less than one minute.
func etaMinutes(distanceKm float64) int {
	minutes := distanceKm / avgAmbulanceSpeedKmh * float64(time.Hour/time.Minute)
	if minutes < 1 {
		return 1
	}
	return int(math.Ceil(minutes))
}

// earthRadiusKm is the mean Earth radius.
const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
