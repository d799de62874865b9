package astro

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandClassify(t *testing.T) {
	tests := []struct {
		freq float64
		want string
	}{
		{1.5e9, "L"},
		{5e9, "C"},
		{20e9, "K"},
		{10e9, "Null"},
		{1.2e9, "Null"},
		{1.7e9, "Null"},
		{4e9, "Null"},
		{8e9, "Null"},
		{17e9, "Null"},
		{26e9, "Null"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandClassify(tt.freq), "frequency %g", tt.freq)
	}
}

func TestFreqToWavelength(t *testing.T) {
	assert.InDelta(t, 0.299792458, FreqToWavelength(1e9), 1e-9)
	assert.Equal(t, 299792458.0/1.5e9, FreqToWavelength(1.5e9))
}

func TestPolarToCartesian(t *testing.T) {
	got := PolarToCartesian(1, math.Pi/4, math.Pi/4)
	assert.InDelta(t, 0.5, got.X, 1e-9)
	assert.InDelta(t, 0.5, got.Y, 1e-9)
	assert.InEpsilon(t, 0.707, got.Z, 1e-3)
}

func TestMJDToDate(t *testing.T) {
	assert.True(t, MJDToDate(0).Equal(time.Date(1858, 11, 17, 0, 0, 0, 0, time.UTC)))
	assert.True(t, MJDToDate(1).Equal(time.Date(1858, 11, 18, 0, 0, 0, 0, time.UTC)))
	assert.True(t, MJDToDate(0.5).Equal(time.Date(1858, 11, 17, 12, 0, 0, 0, time.UTC)))
	assert.True(t, MJDToDate(58696).Equal(time.Date(2019, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, MJDToDate(-0.5).Equal(time.Date(1858, 11, 16, 12, 0, 0, 0, time.UTC)))
	// beyond the ~292 year range of time.Duration
	assert.True(t, MJDToDate(110000.25).Equal(time.Date(2160, 1, 18, 6, 0, 0, 0, time.UTC)))
}

func TestMJDSecondsToDays(t *testing.T) {
	assert.Equal(t, 58696.5, MJDSecondsToDays(58696.5*86400))
}

func TestParseTargetName(t *testing.T) {
	tests := []struct {
		name    string
		wantRA  float64
		wantDec float64
	}{
		{"1331+3030", (13 + 31.0/60) * 15, 30.5},
		{"1331+305", (13 + 31.0/60) * 15, 30.5},
		{"J0319-1234", (3 + 19.0/60) * 15, -(12 + 34.0/60)},
		{"1407+2827,0319+4130", (14 + 7.0/60) * 15, 28 + 27.0/60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargetName(tt.name)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRA, got.RA, 1e-9)
			assert.InDelta(t, tt.wantDec, got.Dec, 1e-9)
		})
	}
}

func TestParseTargetName_Unparseable(t *testing.T) {
	for _, name := range []string{"3C286", "OQ208", "", "9999+9999"} {
		_, err := ParseTargetName(name)
		assert.True(t, errors.Is(err, ErrUnparseableTarget), "name %q: %v", name, err)
	}
}

func TestStokesName(t *testing.T) {
	for code, want := range map[int]string{5: "RR", 8: "LL", 9: "XX", 1: "I"} {
		got, err := StokesName(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := StokesName(0)
	assert.Error(t, err)
}
