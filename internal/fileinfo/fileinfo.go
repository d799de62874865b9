// Package fileinfo describes the bytes behind an artifact: size, content type,
// checksum and modification time of a file or a measurement-set directory.
package fileinfo

import (
	"errors"
	"fmt"
	"time"
)

// IVOADateFormat is the IVOA timestamp layout, millisecond precision.
const IVOADateFormat = "2006-01-02T15:04:05.000"

// ErrMissingID is returned when a FileInfo would be built without an id.
var ErrMissingID = errors.New("fileinfo: id of the file in storage inventory is required")

// FileInfo is the descriptor of one artifact's bytes.
type FileInfo struct {
	ID       string
	Size     int64
	Name     string
	MD5Sum   string
	LastMod  time.Time
	FileType string
	Encoding string
}

// New returns a FileInfo with the given id, rejecting an empty one.
func New(id string) (*FileInfo, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return &FileInfo{ID: id}, nil
}

func (f *FileInfo) String() string {
	return fmt.Sprintf("id=%s, name=%s, size=%d, type=%s, encoding=%s, last modified=%s, md5sum=%s",
		f.ID, f.Name, f.Size, f.FileType, f.Encoding, FormatIVOA(f.LastMod), f.MD5Sum)
}

// FormatIVOA renders t in the IVOA date format. The zero time renders as "None".
func FormatIVOA(t time.Time) string {
	if t.IsZero() {
		return "None"
	}
	return t.UTC().Format(IVOADateFormat)
}
