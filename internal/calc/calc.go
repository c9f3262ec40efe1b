// Package calc holds the deterministic energy, efficiency and battery-health
// formulas consumed by the trackers. Every function is pure and validates its
// input ranges; callers treat an error as "value unknown" rather than a fault.
package calc

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"voltlog/internal/models"
)

var (
	// ErrOutOfRange indicates an input outside its physical range.
	ErrOutOfRange = errors.New("calc: input out of range")
	// ErrInsufficientData indicates too few points for an estimate.
	ErrInsufficientData = errors.New("calc: insufficient data")
)

// SOCToEnergy converts a state-of-charge percentage to kWh for the given
// usable battery capacity.
func SOCToEnergy(socPercent, capacityKWh float64) (float64, error) {
	if socPercent < 0 || socPercent > 100 {
		return 0, fmt.Errorf("%w: soc %.2f%%", ErrOutOfRange, socPercent)
	}
	if capacityKWh <= 0 {
		return 0, fmt.Errorf("%w: capacity %.2f kWh", ErrOutOfRange, capacityKWh)
	}
	return socPercent / 100 * capacityKWh, nil
}

// EnergyFromSOCDelta returns the energy corresponding to a SOC change. The
// result is signed: a discharge yields a negative value and the caller decides
// whether that is meaningful.
func EnergyFromSOCDelta(startSOC, endSOC, capacityKWh float64) (float64, error) {
	start, err := SOCToEnergy(startSOC, capacityKWh)
	if err != nil {
		return 0, err
	}
	end, err := SOCToEnergy(endSOC, capacityKWh)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

// TripDistance returns end minus start odometer, rejecting regressions.
func TripDistance(startOdometer, endOdometer float64) (float64, error) {
	if startOdometer < 0 || endOdometer < 0 {
		return 0, fmt.Errorf("%w: negative odometer", ErrOutOfRange)
	}
	if endOdometer < startOdometer {
		return 0, fmt.Errorf("%w: odometer regressed %.1f -> %.1f", ErrOutOfRange, startOdometer, endOdometer)
	}
	return endOdometer - startOdometer, nil
}

// MilesPerKWh returns electric efficiency.
func MilesPerKWh(miles, kwh float64) (float64, error) {
	if miles < 0 {
		return 0, fmt.Errorf("%w: negative distance", ErrOutOfRange)
	}
	if kwh <= 0 {
		return 0, fmt.Errorf("%w: kwh %.3f", ErrOutOfRange, kwh)
	}
	return miles / kwh, nil
}

// MilesPerGallon returns gas efficiency.
func MilesPerGallon(miles, gallons float64) (float64, error) {
	if miles < 0 {
		return 0, fmt.Errorf("%w: negative distance", ErrOutOfRange)
	}
	if gallons <= 0 {
		return 0, fmt.Errorf("%w: gallons %.3f", ErrOutOfRange, gallons)
	}
	return miles / gallons, nil
}

// GallonsFromLevelDelta converts a fuel-level percentage change to gallons.
func GallonsFromLevelDelta(deltaPercent, tankCapacityGal float64) (float64, error) {
	if deltaPercent < 0 || deltaPercent > 100 {
		return 0, fmt.Errorf("%w: level delta %.2f%%", ErrOutOfRange, deltaPercent)
	}
	if tankCapacityGal <= 0 {
		return 0, fmt.Errorf("%w: tank capacity %.2f gal", ErrOutOfRange, tankCapacityGal)
	}
	return deltaPercent / 100 * tankCapacityGal, nil
}

// ChargeCost returns the cost of the given energy at the given rate.
func ChargeCost(kwh, ratePerKWh float64) (float64, error) {
	if kwh < 0 || ratePerKWh < 0 {
		return 0, fmt.Errorf("%w: negative cost input", ErrOutOfRange)
	}
	return kwh * ratePerKWh, nil
}

// CurveEnergyKWh integrates charger power over a charging curve using the
// trapezoid rule. Points must be in chronological order.
func CurveEnergyKWh(curve []models.CurvePoint) (float64, error) {
	if len(curve) < 2 {
		return 0, ErrInsufficientData
	}
	var kwh float64
	for i := 1; i < len(curve); i++ {
		dt := curve[i].RecordedAt.Sub(curve[i-1].RecordedAt).Hours()
		if dt < 0 {
			return 0, fmt.Errorf("%w: curve points out of order", ErrOutOfRange)
		}
		kwh += (curve[i].PowerKW + curve[i-1].PowerKW) / 2 * dt
	}
	return kwh, nil
}

// ImpliedCapacityKWh estimates full-pack capacity from measured energy
// delivered across a SOC rise. Small SOC deltas amplify meter noise, so
// callers should gate on a minimum delta.
func ImpliedCapacityKWh(measuredKWh, socDeltaPercent float64) (float64, error) {
	if measuredKWh <= 0 {
		return 0, fmt.Errorf("%w: measured %.3f kWh", ErrOutOfRange, measuredKWh)
	}
	if socDeltaPercent <= 0 || socDeltaPercent > 100 {
		return 0, fmt.Errorf("%w: soc delta %.2f%%", ErrOutOfRange, socDeltaPercent)
	}
	return measuredKWh / (socDeltaPercent / 100), nil
}

// DegradationRate fits implied capacity against time and returns the slope in
// kWh per year. Times are unix seconds; at least three points are required.
func DegradationRate(unixTimes, capacitiesKWh []float64) (float64, error) {
	if len(unixTimes) != len(capacitiesKWh) {
		return 0, fmt.Errorf("%w: mismatched series", ErrOutOfRange)
	}
	if len(unixTimes) < 3 {
		return 0, ErrInsufficientData
	}
	const secondsPerYear = 365.25 * 24 * 3600
	years := make([]float64, len(unixTimes))
	for i, t := range unixTimes {
		years[i] = (t - unixTimes[0]) / secondsPerYear
	}
	_, slope := stat.LinearRegression(years, capacitiesKWh, nil, false)
	return slope, nil
}
