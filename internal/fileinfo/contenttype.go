package fileinfo

import "strings"

const (
	MeasurementSetType = "application/measurement-set"
	FITSType           = "application/fits"
	TextType           = "text/plain"
)

var contentTypes = []struct {
	suffixes    []string
	contentType string
}{
	{[]string{".fits", ".fits.fz", ".fits.bz2"}, FITSType},
	{[]string{".gif"}, "image/gif"},
	{[]string{".png"}, "image/png"},
	{[]string{".jpg"}, "image/jpeg"},
	{[]string{".tar.gz"}, "application/x-tar"},
	{[]string{".csv"}, "text/csv"},
	{[]string{".hdf5", ".h5"}, "application/x-hdf5"},
	{[]string{".pkl"}, "python/pickle"},
}

// ContentType maps a file name to its content type by extension.
// Directories are classified by Describe, not here.
func ContentType(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range contentTypes {
		for _, suffix := range entry.suffixes {
			if strings.HasSuffix(lower, suffix) {
				return entry.contentType
			}
		}
	}
	return TextType
}
