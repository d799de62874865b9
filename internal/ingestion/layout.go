package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout is the on-disk shape of one pipeline observation directory:
//
//	{obs}/{obs}_avg.ms
//	{obs}/{obs}_sp.ms          optional
//	{obs}/weblog/info/eMCP_info.txt
//	{obs}/weblog/plots/*/
//	{obs}/weblog/images/*/
//	{obs}/splits/*.ms          optional
type Layout struct {
	Root       string
	ObsID      string
	AvgMS      string
	SpectralMS string
	InfoFile   string
	PlotDirs   []string
	ImageDirs  []string
	Splits     []string
}

const (
	avgSuffix      = "_avg.ms"
	spectralSuffix = "_sp.ms"
	infoFile       = "eMCP_info.txt"
	imageSuffix    = "-image.fits"
)

// DiscoverLayout inspects root. Missing required entries are reported as an
// *InputError.
func DiscoverLayout(root string) (*Layout, error) {
	root = filepath.Clean(root)
	fail := func(err error) (*Layout, error) {
		return nil, &InputError{ObservationDir: root, Err: err}
	}

	if err := requireDir(root); err != nil {
		return fail(err)
	}
	obsID := filepath.Base(root)
	l := &Layout{
		Root:     root,
		ObsID:    obsID,
		AvgMS:    filepath.Join(root, obsID+avgSuffix),
		InfoFile: filepath.Join(root, "weblog", "info", infoFile),
	}
	if err := requireDir(l.AvgMS); err != nil {
		return fail(err)
	}
	if info, err := os.Stat(l.InfoFile); err != nil {
		return fail(fmt.Errorf("pipeline summary: %w", err))
	} else if info.IsDir() {
		return fail(fmt.Errorf("pipeline summary %s is a directory", l.InfoFile))
	}

	if sp := filepath.Join(root, obsID+spectralSuffix); requireDir(sp) == nil {
		l.SpectralMS = sp
	}

	var err error
	if l.PlotDirs, err = subdirs(filepath.Join(root, "weblog", "plots")); err != nil {
		return fail(err)
	}
	if l.ImageDirs, err = subdirs(filepath.Join(root, "weblog", "images")); err != nil {
		return fail(err)
	}
	splits, err := subdirs(filepath.Join(root, "splits"))
	if err != nil {
		return fail(err)
	}
	for _, s := range splits {
		if strings.HasSuffix(s, ".ms") {
			l.Splits = append(l.Splits, s)
		}
	}
	return l, nil
}

// MeasurementSets lists every MS directory of the observation, primary first.
func (l *Layout) MeasurementSets() []string {
	sets := []string{l.AvgMS}
	if l.SpectralMS != "" {
		sets = append(sets, l.SpectralMS)
	}
	return append(sets, l.Splits...)
}

// Rel returns path relative to the observation root, slash separated.
func (l *Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// subdirs lists the directories directly under dir. A missing dir yields none.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// files lists the regular files directly under dir.
func files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
