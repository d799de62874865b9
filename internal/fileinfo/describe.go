package fileinfo

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/djherbis/times"
)

const (
	fileChunkSize = 4096
	dirChunkSize  = 64 * 1024
)

// Describe builds the FileInfo for path. Directories are treated as
// measurement sets: their size is the sum of the regular files beneath them
// and their checksum is a directory hash over the file contents.
func Describe(path string) (*FileInfo, error) {
	path = filepath.Clean(path)
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", path, err)
	}

	info, err := New(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	info.Name = info.ID
	info.LastMod = lastModified(path, st)

	if st.IsDir() {
		info.FileType = MeasurementSetType
		if info.Size, err = DirSize(path); err != nil {
			return nil, err
		}
		if info.MD5Sum, err = DirHash(path); err != nil {
			return nil, err
		}
		return info, nil
	}

	info.FileType = ContentType(path)
	info.Size = st.Size()
	if info.MD5Sum, err = FileMD5(path); err != nil {
		return nil, err
	}
	return info, nil
}

func lastModified(path string, st os.FileInfo) time.Time {
	ts, err := times.Stat(path)
	if err != nil {
		return st.ModTime()
	}
	return ts.ModTime()
}

// FileMD5 streams the file through MD5 and returns the hex digest.
func FileMD5(path string) (string, error) {
	return hashFile(path, fileChunkSize)
}

func hashFile(path string, chunkSize int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hash := md5.New()
	if _, err := io.CopyBuffer(hash, f, make([]byte, chunkSize)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// DirSize sums the sizes of the regular files under root. Symbolic links are
// not followed and not counted.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", root, err)
	}
	return total, nil
}

// DirHash hashes every file under root with MD5, sorts the hex digests and
// returns the MD5 of their concatenation, so the result does not depend on
// directory order. Symlinked files are hashed through the link; symlinked
// directories are not descended.
func DirHash(root string) (string, error) {
	var digests []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil || target.IsDir() {
				return nil
			}
		}
		digest, err := hashFile(path, dirChunkSize)
		if err != nil {
			return err
		}
		digests = append(digests, digest)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("dirhash %s: %w", root, err)
	}

	sort.Strings(digests)
	hash := md5.New()
	for _, digest := range digests {
		io.WriteString(hash, digest)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
