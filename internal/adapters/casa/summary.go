package casa

import (
	"errors"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/uksrc/emerlin2caom/internal/astro"
)

// ErrNoChannels is returned when a summary has no spectral channels.
var ErrNoChannels = errors.New("casa: measurement set has no spectral channels")

// ErrNoTimes is returned when a summary has no TIME column values.
var ErrNoTimes = errors.New("casa: measurement set has no time samples")

// Position is a spherical ITRF position: longitude and latitude in radians,
// radius in metres.
type Position struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Radius    float64 `json:"radius"`
}

// Cartesian converts the position to geocentric X/Y/Z.
func (p Position) Cartesian() astro.Cartesian {
	return astro.PolarToCartesian(p.Radius, math.Pi/2-p.Latitude, p.Longitude)
}

type Antenna struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
}

// Direction is an ICRS direction in radians.
type Direction struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

type Field struct {
	Name        string     `json:"name"`
	PhaseCenter *Direction `json:"phase_center,omitempty"`
	Scans       []int      `json:"scans"`
	Exposure    float64    `json:"exposure"`
}

type SpectralWindow struct {
	ChanFreqs  []float64 `json:"chan_freqs"`
	ChanWidths []float64 `json:"chan_widths"`
}

type Polarization struct {
	CorrTypes    []int    `json:"corr_types"`
	FeedTypes    []string `json:"feed_types"`
	NumReceptors int      `json:"num_receptors"`
}

// Summary is the measurement-set metadata the pipeline needs, as reported by
// the CASA helper.
type Summary struct {
	Observatory         string           `json:"observatory"`
	ObservatoryPosition *Position        `json:"observatory_position,omitempty"`
	Projects            []string         `json:"projects"`
	ReleaseDate         float64          `json:"release_date"` // MJD seconds
	Antennas            []Antenna        `json:"antennas"`
	Fields              []Field          `json:"fields"`
	SpectralWindows     []SpectralWindow `json:"spectral_windows"`
	Scans               []int            `json:"scans"`
	Times               []float64        `json:"times"` // TIME column, MJD seconds
	Polarization        Polarization     `json:"polarization"`
}

func (s *Summary) frequencies() []float64 {
	var freqs []float64
	for _, spw := range s.SpectralWindows {
		freqs = append(freqs, spw.ChanFreqs...)
	}
	return freqs
}

// ChannelCount is the number of channels across all spectral windows.
func (s *Summary) ChannelCount() int {
	return len(s.frequencies())
}

// WavelengthBounds returns the shortest and longest wavelength, in metres,
// covered by the channel frequencies.
func (s *Summary) WavelengthBounds() (lower, upper float64, err error) {
	freqs := s.frequencies()
	if len(freqs) == 0 {
		return 0, 0, ErrNoChannels
	}
	return astro.FreqToWavelength(lo.Max(freqs)), astro.FreqToWavelength(lo.Min(freqs)), nil
}

// ChannelWidthWavelength is the width of the first channel expressed in
// metres of wavelength.
func (s *Summary) ChannelWidthWavelength() (float64, error) {
	if len(s.SpectralWindows) == 0 || len(s.SpectralWindows[0].ChanFreqs) == 0 || len(s.SpectralWindows[0].ChanWidths) == 0 {
		return 0, ErrNoChannels
	}
	f := s.SpectralWindows[0].ChanFreqs[0]
	w := s.SpectralWindows[0].ChanWidths[0]
	return math.Abs(astro.FreqToWavelength(f) - astro.FreqToWavelength(f+w)), nil
}

// BandName classifies the first channel of the first spectral window.
func (s *Summary) BandName() (string, error) {
	if len(s.SpectralWindows) == 0 || len(s.SpectralWindows[0].ChanFreqs) == 0 {
		return "", ErrNoChannels
	}
	return astro.BandClassify(s.SpectralWindows[0].ChanFreqs[0]), nil
}

// TimeBounds returns the first and last TIME sample in MJD days.
func (s *Summary) TimeBounds() (lower, upper float64, err error) {
	if len(s.Times) == 0 {
		return 0, 0, ErrNoTimes
	}
	return astro.MJDSecondsToDays(lo.Min(s.Times)), astro.MJDSecondsToDays(lo.Max(s.Times)), nil
}

// Exposure sums the on-source time of every field, in seconds.
func (s *Summary) Exposure() float64 {
	return lo.SumBy(s.Fields, func(f Field) float64 { return f.Exposure })
}

// ScanCount is the number of distinct scans.
func (s *Summary) ScanCount() int {
	return len(lo.Uniq(s.Scans))
}

// PolarizationStates maps the correlation types to CAOM state names.
func (s *Summary) PolarizationStates() ([]string, error) {
	states := make([]string, 0, len(s.Polarization.CorrTypes))
	for _, code := range s.Polarization.CorrTypes {
		name, err := astro.StokesName(code)
		if err != nil {
			return nil, err
		}
		states = append(states, name)
	}
	return states, nil
}

// PolarizationDimension is the number of correlation states, falling back to
// the receptor count when no correlation types are reported.
func (s *Summary) PolarizationDimension() int {
	if n := len(s.Polarization.CorrTypes); n > 0 {
		return n
	}
	return s.Polarization.NumReceptors
}

// Release converts the release date to UTC. The zero time means unknown.
func (s *Summary) Release() time.Time {
	if s.ReleaseDate == 0 {
		return time.Time{}
	}
	return astro.MJDToDate(astro.MJDSecondsToDays(s.ReleaseDate))
}

// Project returns the first project code, or "" if none.
func (s *Summary) Project() string {
	if len(s.Projects) == 0 {
		return ""
	}
	return s.Projects[0]
}

// FieldNames lists the distinct source names in field order.
func (s *Summary) FieldNames() []string {
	return lo.Uniq(lo.Map(s.Fields, func(f Field, _ int) string { return f.Name }))
}

// AntennaNames lists the antenna names in table order.
func (s *Summary) AntennaNames() []string {
	return lo.Map(s.Antennas, func(a Antenna, _ int) string { return a.Name })
}
