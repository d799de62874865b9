package fileinfo

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/uksrc/emerlin2caom/internal/model"
)

// Reader caches FileInfo by destination URI so that each input is described
// once per run. Entries are dropped with Unset to keep memory flat over long
// runs.
type Reader struct {
	mu       sync.Mutex
	describe func(path string) (*FileInfo, error)
	infos    map[string]*FileInfo
}

// NewReader returns an empty Reader backed by Describe.
func NewReader() *Reader {
	return &Reader{describe: Describe, infos: make(map[string]*FileInfo)}
}

// Set describes every source of name not already cached.
func (r *Reader) Set(name model.StorageName) error {
	for i, uri := range name.DestinationURIs {
		if _, err := r.Lookup(uri, name.SourceNames[i]); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the cached FileInfo for uri, describing source on a miss.
func (r *Reader) Lookup(uri, source string) (*FileInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.infos[uri]; ok {
		return info, nil
	}
	slog.Debug("retrieve file info", "uri", uri, "source", source)
	info, err := r.describe(source)
	if err != nil {
		return nil, err
	}
	r.infos[uri] = info
	return info, nil
}

// FileInfo returns the cached entry for uri.
func (r *Reader) FileInfo(uri string) (*FileInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.infos[uri]
	return info, ok
}

// Unset removes the entries of name from the cache.
func (r *Reader) Unset(name model.StorageName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, uri := range name.DestinationURIs {
		delete(r.infos, uri)
		slog.Debug("unset file info", "uri", uri)
	}
}

// Reset empties the cache.
func (r *Reader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = make(map[string]*FileInfo)
}

// Len reports the number of cached entries.
func (r *Reader) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.infos)
}

func (r *Reader) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.infos))
	for k := range r.infos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("file_info:\n%s", strings.Join(keys, "\n"))
}
