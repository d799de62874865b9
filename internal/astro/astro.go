// Package astro holds the small numeric conversions used when transcribing
// measurement-set metadata: frequency to wavelength, e-MERLIN band names,
// antenna positions and Modified Julian Dates.
package astro

import (
	"log/slog"
	"math"
	"time"
)

// SpeedOfLight in metres per second.
const SpeedOfLight = 299792458

// FreqToWavelength converts a frequency in Hz to a wavelength in metres.
func FreqToWavelength(freqHz float64) float64 {
	return SpeedOfLight / freqHz
}

const BandUnknown = "Null"

var bands = []struct {
	name      string
	low, high float64 // GHz, exclusive
}{
	{"L", 1.2, 1.7},
	{"C", 4, 8},
	{"K", 17, 26},
}

// BandClassify names the e-MERLIN receiver band containing freqHz.
// Band edges are exclusive; anything outside a band is BandUnknown.
func BandClassify(freqHz float64) string {
	ghz := freqHz / 1e9
	for _, b := range bands {
		if ghz > b.low && ghz < b.high {
			return b.name
		}
	}
	slog.Warn("cannot determine band from frequency", "frequency_hz", freqHz)
	return BandUnknown
}

// Cartesian is a point in metres.
type Cartesian struct {
	X, Y, Z float64
}

// PolarToCartesian converts spherical coordinates, theta being the polar
// angle and phi the azimuth, both in radians.
func PolarToCartesian(r, theta, phi float64) Cartesian {
	return Cartesian{
		X: r * math.Sin(theta) * math.Cos(phi),
		Y: r * math.Sin(theta) * math.Sin(phi),
		Z: r * math.Cos(theta),
	}
}

// MJDEpoch is day zero of the Modified Julian Date.
var MJDEpoch = time.Date(1858, 11, 17, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400

// MJDToDate converts a (possibly fractional) MJD to a UTC time. Whole days
// are added as calendar days so dates past the time.Duration range convert.
func MJDToDate(mjd float64) time.Time {
	days := math.Floor(mjd)
	frac := mjd - days
	return MJDEpoch.AddDate(0, 0, int(days)).Add(time.Duration(math.Round(frac * secondsPerDay * float64(time.Second))))
}

// MJDSecondsToDays converts CASA TIME column values, MJD seconds, to MJD days.
func MJDSecondsToDays(seconds float64) float64 {
	return seconds / secondsPerDay
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
