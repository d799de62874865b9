package model

import (
	"fmt"
	"strings"
)

// NameConfig carries the archive naming settings a StorageName is rendered with.
// PreviewScheme, when set, replaces Scheme in the URIs of preview artifacts.
type NameConfig struct {
	Scheme        string
	PreviewScheme string
	Collection    string
}

// fileIDSuffixes are stripped from a file name to form its file id.
var fileIDSuffixes = []string{".header", ".fits"}

// productSuffixes are additionally stripped from a file id to form the
// observation and product ids.
var productSuffixes = []string{".header", ".fits", ".fz", ".bz2", ".gz"}

// StorageName identifies one physical input, a file or a directory.
// It is immutable once constructed.
type StorageName struct {
	FileName        string
	FileID          string
	FileURI         string
	ObsID           string
	ProductID       string
	SourceNames     []string
	DestinationURIs []string
}

// NewStorageName resolves entry into a StorageName. entry may be a bare file
// name, a scheme:collection/name URI, an http(s) URL, a vos: URI or an
// absolute path; all forms of the same file resolve to the same ids and URI.
func NewStorageName(entry string, cfg NameConfig) StorageName {
	fileName := baseName(entry)
	fileID := trimSuffixes(fileName, fileIDSuffixes)
	obsID := trimSuffixes(fileID, productSuffixes)
	uri := fmt.Sprintf("%s:%s/%s", cfg.Scheme, cfg.Collection, strings.TrimSuffix(fileName, ".header"))

	return StorageName{
		FileName:        fileName,
		FileID:          fileID,
		FileURI:         uri,
		ObsID:           obsID,
		ProductID:       obsID,
		SourceNames:     []string{entry},
		DestinationURIs: []string{uri},
	}
}

// IsValid reports whether the name carries a usable file id.
func (s StorageName) IsValid() bool {
	return s.FileID != ""
}

func (s StorageName) String() string {
	return fmt.Sprintf("file_id=%s obs_id=%s uri=%s source=%s", s.FileID, s.ObsID, s.FileURI, strings.Join(s.SourceNames, ","))
}

func baseName(entry string) string {
	entry = strings.TrimRight(entry, "/")
	if i := strings.LastIndex(entry, "/"); i >= 0 {
		return entry[i+1:]
	}
	// scheme:name with no path separator
	if i := strings.LastIndex(entry, ":"); i >= 0 {
		return entry[i+1:]
	}
	return entry
}

func trimSuffixes(name string, suffixes []string) string {
	for {
		trimmed := name
		for _, suffix := range suffixes {
			trimmed = strings.TrimSuffix(trimmed, suffix)
		}
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}
