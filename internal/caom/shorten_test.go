package caom

import (
	"errors"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longPrefix = "cadc:EMERLIN/TS8004_C_001_20190801/weblog/plots/caltables/"

func TestTruncate(t *testing.T) {
	short := "cadc:EMERLIN/X/X_avg.ms"
	assert.Equal(t, short, Truncate(short))

	uri := longPrefix + "TS8004_C_001_20190801_avg.ms_bpcal_phase.png"
	got := Truncate(uri)
	assert.Len(t, got, MaxURILength)
	assert.True(t, strings.HasSuffix(uri, got))
}

func TestHash(t *testing.T) {
	uri := longPrefix + "TS8004_C_001_20190801_avg.ms_bpcal_phase.png"
	got := Hash(uri)
	assert.Len(t, got, MaxURILength)
	assert.True(t, strings.HasPrefix(got, "cadc:EMERLIN/"))
	assert.Equal(t, got, Hash(uri))
}

func TestShortener_ReportsCollision(t *testing.T) {
	s := NewShortener(PolicyTruncate)
	tail := strings.Repeat("x", MaxURILength)

	first, err := s.Shorten("cadc:EMERLIN/a/" + tail)
	require.NoError(t, err)

	second, err := s.Shorten("cadc:EMERLIN/b/" + tail)
	assert.Equal(t, first, second)
	var cerr *CollisionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "cadc:EMERLIN/a/"+tail, cerr.Existing)

	// the same input twice is not a collision
	_, err = s.Shorten("cadc:EMERLIN/a/" + tail)
	assert.NoError(t, err)

	_, err = NewShortener(PolicyTruncate).Shorten("cadc:EMERLIN/b/" + tail)
	assert.NoError(t, err, "a fresh shortener has issued nothing")
}

func TestShorten_MultiByteNames(t *testing.T) {
	uri := "cadc:EMERLIN/" + strings.Repeat("é", 40) + "x.png"

	got := Truncate(uri)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxURILength, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(uri, got))

	hashed := Hash(uri)
	assert.True(t, utf8.ValidString(hashed))
	assert.Equal(t, MaxURILength, utf8.RuneCountInString(hashed))
	assert.True(t, strings.HasPrefix(hashed, "cadc:EMERLIN/éé"))
}

func TestShortener_HashedAvoidsCollision(t *testing.T) {
	s := NewShortener(PolicyHashed)
	tail := strings.Repeat("x", MaxURILength)

	first, err := s.Shorten("cadc:EMERLIN/a/" + tail)
	require.NoError(t, err)
	second, err := s.Shorten("cadc:EMERLIN/b/" + tail)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyTruncate, p)

	p, err = ParsePolicy("hashed")
	require.NoError(t, err)
	assert.Equal(t, PolicyHashed, p)

	_, err = ParsePolicy("md5")
	assert.Error(t, err)
}

func TestShorten_Properties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("shortened uris fit the limit", prop.ForAll(
		func(tail string) bool {
			uri := longPrefix + tail
			return URILength(Truncate(uri)) <= MaxURILength && URILength(Hash(uri)) <= MaxURILength
		},
		gen.AlphaString(),
	))

	properties.Property("truncation keeps valid utf-8", prop.ForAll(
		func(tail string) bool {
			got := Truncate(longPrefix + tail)
			return utf8.ValidString(got) && strings.HasSuffix(longPrefix+tail, got)
		},
		gen.UnicodeString(unicode.Latin),
	))

	properties.Property("uris within the limit are unchanged", prop.ForAll(
		func(name string) bool {
			uri := "cadc:EMERLIN/" + name
			if len(uri) > MaxURILength {
				return true
			}
			return Truncate(uri) == uri && Hash(uri) == uri
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
