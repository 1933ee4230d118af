package sensor

import (
	"math"
	"math/rand/v2"
)

// Magnus coefficients for water over a liquid surface.
const (
	magnusA = 17.625
	magnusB = 243.04
)

// DewPoint returns the dew point in °C for relative humidity rh (percent)
// at air temperature t (°C).
func DewPoint(rh, t float64) float64 {
	alpha := magnusA*t/(magnusB+t) + math.Log(rh/100)
	return magnusB * alpha / (magnusA - alpha)
}

// AQIFromPM25 converts a PM2.5 concentration (µg/m³) to a simplified US EPA
// air quality index.
func AQIFromPM25(pm25 float64) int {
	switch {
	case pm25 <= 12.0:
		return int(pm25 / 12.0 * 50)
	case pm25 <= 35.4:
		return 50 + int((pm25-12.0)/23.4*49)
	case pm25 <= 55.4:
		return 100 + int((pm25-35.4)/20.0*49)
	case pm25 <= 150.4:
		return 150 + int((pm25-55.4)/95.0*49)
	case pm25 <= 250.4:
		return 200 + int((pm25-150.4)/100.0*99)
	default:
		return 300 + int((pm25-250.4)/149.6*99)
	}
}

// round rounds x to the given number of decimal places.
func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}

func between(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// intRange returns an int in [lo, hi).
func intRange(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo)
}

func chance(r *rand.Rand, p float64) bool {
	return r.Float64() < p
}

func pick(r *rand.Rand, options ...string) string {
	return options[r.IntN(len(options))]
}
