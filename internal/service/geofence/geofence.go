// Package geofence decides whether a reported position lies inside the institution fence.
package geofence

import (
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/utils"
)

// Point is a single location sample as reported by the client.
type Point struct {
	Latitude  float64
	Longitude float64
}

type Evaluation struct {
	WithinFence    bool
	DistanceMeters float64
	RadiusMeters   float64
}

// Evaluate measures the haversine distance from the fence center. The boundary is inclusive.
// A nil config fails with ErrConfigurationMissing rather than defaulting to inside.
func Evaluate(p Point, cfg *settings.GeofenceConfig) (Evaluation, error) {
	if cfg == nil {
		return Evaluation{}, attendance.ErrConfigurationMissing
	}

	distance := utils.CalculateHaversineDistance(cfg.CenterLatitude, cfg.CenterLongitude, p.Latitude, p.Longitude)

	return Evaluation{
		WithinFence:    distance <= cfg.RadiusMeters,
		DistanceMeters: distance,
		RadiusMeters:   cfg.RadiusMeters,
	}, nil
}

// Location converts an evaluation into the record stored at a transition.
func (e Evaluation) Location(p Point) attendance.Location {
	return attendance.Location{
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		DistanceMeters: e.DistanceMeters,
	}
}

// OutOfRange returns the typed rejection for this evaluation.
func (e Evaluation) OutOfRange() error {
	return &attendance.OutOfRangeError{DistanceMeters: e.DistanceMeters, RadiusMeters: e.RadiusMeters}
}
