package caom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"
)

// ShortenPolicy selects how over-long URIs are brought under MaxURILength.
type ShortenPolicy string

const (
	// PolicyTruncate keeps the trailing MaxURILength characters.
	PolicyTruncate ShortenPolicy = "truncate"
	// PolicyHashed keeps a prefix and appends 8 hex characters of sha256.
	PolicyHashed ShortenPolicy = "hashed"
)

const hashSuffixLength = 8

// ParsePolicy accepts the configured policy name. Empty means truncate.
func ParsePolicy(name string) (ShortenPolicy, error) {
	switch ShortenPolicy(name) {
	case "", PolicyTruncate:
		return PolicyTruncate, nil
	case PolicyHashed:
		return PolicyHashed, nil
	}
	return "", fmt.Errorf("caom: unknown uri policy %q", name)
}

// URILength counts the characters of uri as the archive does, in runes.
func URILength(uri string) int {
	return utf8.RuneCountInString(uri)
}

// Truncate returns the trailing MaxURILength characters of uri.
func Truncate(uri string) string {
	n := URILength(uri)
	if n <= MaxURILength {
		return uri
	}
	i := 0
	for skip := n - MaxURILength; skip > 0; skip-- {
		_, size := utf8.DecodeRuneInString(uri[i:])
		i += size
	}
	return uri[i:]
}

// Hash returns uri unchanged when short enough, otherwise its leading
// characters joined to an 8-hex sha256 digest of the whole uri.
func Hash(uri string) string {
	if URILength(uri) <= MaxURILength {
		return uri
	}
	sum := sha256.Sum256([]byte(uri))
	suffix := hex.EncodeToString(sum[:])[:hashSuffixLength]

	i := 0
	for keep := MaxURILength - hashSuffixLength - 1; keep > 0; keep-- {
		_, size := utf8.DecodeRuneInString(uri[i:])
		i += size
	}
	return uri[:i] + "_" + suffix
}

// Shortener applies a policy and remembers every name it has issued so that
// two distinct inputs mapping to the same URI are reported. One Shortener
// covers one observation set.
type Shortener struct {
	policy ShortenPolicy

	mu     sync.Mutex
	issued map[string]string
}

func NewShortener(policy ShortenPolicy) *Shortener {
	if policy == "" {
		policy = PolicyTruncate
	}
	return &Shortener{policy: policy, issued: make(map[string]string)}
}

// Shorten returns the shortened uri. The result is always usable; a
// *CollisionError is returned alongside it when another input already
// produced the same name.
func (s *Shortener) Shorten(uri string) (string, error) {
	var short string
	switch s.policy {
	case PolicyHashed:
		short = Hash(uri)
	default:
		short = Truncate(uri)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.issued[short]; ok && prev != uri {
		slog.Warn("artifact uri collision", "short", short, "existing", prev, "uri", uri)
		return short, &CollisionError{Short: short, Existing: prev, URI: uri}
	}
	s.issued[short] = uri
	return short, nil
}
