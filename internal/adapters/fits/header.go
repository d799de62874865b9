// Package fits extracts the CAOM-relevant cards of a FITS image's primary header.
package fits

import (
	"fmt"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
)

// MissingCardError reports a primary-header keyword that is absent.
type MissingCardError struct {
	Path string
	Name string
}

func (e *MissingCardError) Error() string {
	return fmt.Sprintf("fits: %s: missing header card %s", e.Path, e.Name)
}

// ImageHeader holds the primary-header values used to describe an image plane.
type ImageHeader struct {
	CoordScheme    float64 // EQUINOX
	RAUnit         string  // CTYPE1
	RADeg          float64 // CRVAL1
	DecUnit        string  // CTYPE2
	DecDeg         float64 // CRVAL2
	WSCVersion     string  // WSCVERSI
	CentralFreq    float64 // CRVAL3
	PixWidth       int     // NAXIS1
	PixLength      int     // NAXIS2
	PixWidthScale  float64 // CDELT1
	PixLengthScale float64 // CDELT2
}

// ExtractHeader reads the primary HDU of the FITS file at path.
func ExtractHeader(path string) (*ImageHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fits: %w", err)
	}
	defer f.Close()

	file, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("fits: open %s: %w", path, err)
	}
	defer file.Close()

	c := cards{path: path, hdr: file.HDU(0).Header()}
	out := &ImageHeader{
		CoordScheme:    c.float("EQUINOX"),
		RAUnit:         c.string("CTYPE1"),
		RADeg:          c.float("CRVAL1"),
		DecUnit:        c.string("CTYPE2"),
		DecDeg:         c.float("CRVAL2"),
		WSCVersion:     c.string("WSCVERSI"),
		CentralFreq:    c.float("CRVAL3"),
		PixWidth:       c.int("NAXIS1"),
		PixLength:      c.int("NAXIS2"),
		PixWidthScale:  c.float("CDELT1"),
		PixLengthScale: c.float("CDELT2"),
	}
	if c.err != nil {
		return nil, c.err
	}
	return out, nil
}

// cards reads typed values from a header, keeping the first error.
type cards struct {
	path string
	hdr  *fitsio.Header
	err  error
}

func (c *cards) value(name string) any {
	if c.err != nil {
		return nil
	}
	card := c.hdr.Get(name)
	if card == nil {
		c.err = &MissingCardError{Path: c.path, Name: name}
		return nil
	}
	return card.Value
}

func (c *cards) typeError(name string, v any) {
	c.err = fmt.Errorf("fits: %s: card %s has unexpected type %T", c.path, name, v)
}

func (c *cards) float(name string) float64 {
	switch v := c.value(name).(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		c.typeError(name, v)
		return 0
	}
}

func (c *cards) int(name string) int {
	switch v := c.value(name).(type) {
	case nil:
		return 0
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		c.typeError(name, v)
		return 0
	}
}

func (c *cards) string(name string) string {
	switch v := c.value(name).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		c.typeError(name, v)
		return ""
	}
}
