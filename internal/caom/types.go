package caom

import "sort"

// ObservationKind distinguishes simple observations from derived ones.
type ObservationKind string

const (
	Simple  ObservationKind = "SimpleObservation"
	Derived ObservationKind = "DerivedObservation"
)

// SimpleAlgorithm is the algorithm name CAOM requires on simple observations.
const SimpleAlgorithm = "exposure"

type Intent string

const (
	IntentScience     Intent = "science"
	IntentCalibration Intent = "calibration"
)

type ProductType string

const (
	ProductScience     ProductType = "science"
	ProductCalibration ProductType = "calibration"
	ProductAuxiliary   ProductType = "auxiliary"
	ProductPreview     ProductType = "preview"
	ProductThumbnail   ProductType = "thumbnail"
)

type ReleaseType string

const (
	ReleaseData ReleaseType = "data"
	ReleaseMeta ReleaseType = "meta"
)

type DataProductType string

const (
	DataProductVisibility DataProductType = "visibility"
	DataProductImage      DataProductType = "image"
)

// Calibration levels.
const (
	CalibrationRaw        = 1
	CalibrationCalibrated = 2
	CalibrationProduct    = 3
)

// Interval is a closed [Lower, Upper] range.
type Interval struct {
	Lower float64
	Upper float64
}

// NewInterval rejects inverted bounds.
func NewInterval(lower, upper float64) (Interval, error) {
	if lower > upper {
		return Interval{}, &ValidationError{Entity: "interval", Reason: "lower bound exceeds upper bound"}
	}
	return Interval{Lower: lower, Upper: upper}, nil
}

// Energy bounds are wavelengths in metres.
type Energy struct {
	Bounds       Interval
	Dimension    int
	SampleSize   float64
	BandpassName string
	EnergyBands  []string
}

// Time bounds are MJD days; Exposure is seconds.
type Time struct {
	Bounds     Interval
	Dimension  int
	SampleSize float64
	Exposure   float64
}

type Polarization struct {
	Dimension int
	States    []string
}

type Point struct {
	CVal1 float64
	CVal2 float64
}

// Circle is a position bound in degrees.
type Circle struct {
	Center Point
	Radius float64
}

type Position struct {
	Bounds     Circle
	NAxis1     int
	NAxis2     int
	SampleSize float64 // arcsec
}

type Provenance struct {
	Name      string
	Version   string
	Project   string
	Producer  string
	RunID     string
	Reference string
	Keywords  []string
}

type Proposal struct {
	ID      string
	Project string
}

type Target struct {
	Name     string
	Type     string
	Keywords []string
}

type TargetPosition struct {
	CoordSys    string
	Equinox     float64
	Coordinates Point
}

// GeoLocation is a geocentric position in metres.
type GeoLocation struct {
	X, Y, Z float64
}

type Telescope struct {
	Name        string
	GeoLocation *GeoLocation
	Keywords    []string
}

type Instrument struct {
	Name     string
	Keywords []string
}

// sortedSet returns the distinct values of in, sorted. CAOM keyword
// collections are sets.
func sortedSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
