package fits

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockSize = 2880

type card struct {
	key   string
	value string
}

// writeFITS writes a minimal 2x2 8-bit primary image with the given cards.
func writeFITS(t *testing.T, extra []card) string {
	t.Helper()
	cards := append([]card{
		{"SIMPLE", "T"},
		{"BITPIX", "8"},
		{"NAXIS", "2"},
		{"NAXIS1", "2"},
		{"NAXIS2", "2"},
	}, extra...)

	var buf bytes.Buffer
	for _, c := range cards {
		line := fmt.Sprintf("%-8s= %20s", c.key, c.value)
		buf.WriteString(fmt.Sprintf("%-80s", line))
	}
	buf.WriteString(fmt.Sprintf("%-80s", "END"))
	for buf.Len()%blockSize != 0 {
		buf.WriteByte(' ')
	}
	data := make([]byte, blockSize)
	copy(data, []byte{1, 2, 3, 4})
	buf.Write(data)

	path := filepath.Join(t.TempDir(), "target-image.fits")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

var imageCards = []card{
	{"EQUINOX", "2000.0"},
	{"CTYPE1", "'RA---SIN'"},
	{"CRVAL1", "83.63308"},
	{"CTYPE2", "'DEC--SIN'"},
	{"CRVAL2", "22.01446"},
	{"WSCVERSI", "'2.9     '"},
	{"CRVAL3", "1400000000.0"},
	{"CDELT1", "-0.00277777"},
	{"CDELT2", "0.00277777"},
}

func TestExtractHeader(t *testing.T) {
	path := writeFITS(t, imageCards)

	hdr, err := ExtractHeader(path)
	require.NoError(t, err)

	assert.Equal(t, 2000.0, hdr.CoordScheme)
	assert.Equal(t, "RA---SIN", hdr.RAUnit)
	assert.InDelta(t, 83.63308, hdr.RADeg, 1e-9)
	assert.Equal(t, "DEC--SIN", hdr.DecUnit)
	assert.InDelta(t, 22.01446, hdr.DecDeg, 1e-9)
	assert.Equal(t, "2.9", hdr.WSCVersion)
	assert.Equal(t, 1.4e9, hdr.CentralFreq)
	assert.Equal(t, 2, hdr.PixWidth)
	assert.Equal(t, 2, hdr.PixLength)
	assert.InDelta(t, -0.00277777, hdr.PixWidthScale, 1e-12)
	assert.InDelta(t, 0.00277777, hdr.PixLengthScale, 1e-12)
}

func TestExtractHeader_MissingCard(t *testing.T) {
	var withoutVersion []card
	for _, c := range imageCards {
		if c.key != "WSCVERSI" {
			withoutVersion = append(withoutVersion, c)
		}
	}
	path := writeFITS(t, withoutVersion)

	_, err := ExtractHeader(path)
	var missing *MissingCardError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, "WSCVERSI", missing.Name)
}

func TestExtractHeader_FileNotFound(t *testing.T) {
	_, err := ExtractHeader(filepath.Join(t.TempDir(), "nonexistent.fits"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExtractHeader_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.fits")
	require.NoError(t, os.WriteFile(path, []byte("not a fits file"), 0o644))

	_, err := ExtractHeader(path)
	assert.Error(t, err)
}
