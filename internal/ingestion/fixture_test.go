package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/uksrc/emerlin2caom/internal/adapters/casa"
	"github.com/uksrc/emerlin2caom/internal/adapters/fits"
	"github.com/uksrc/emerlin2caom/internal/caom"
	"github.com/uksrc/emerlin2caom/internal/fileinfo"
	"github.com/uksrc/emerlin2caom/internal/model"
)

const (
	testObsID = "TS8004_C_001_20190801"
	testRunID = model.RunID("01890c24-905b-7122-b170-b60814e6ee06")
)

var testNames = model.NameConfig{Scheme: "cadc", Collection: "EMERLIN"}

const testInfo = `pipeline_version: v1.1.19
casa_version: 5.8.0
run_date: 2019-08-05 10:22:31
pipeline_path: /opt/eMERLIN_CASA_pipeline/
`

func twoWindowSummary() *casa.Summary {
	return &casa.Summary{
		Observatory:         "e-MERLIN",
		ObservatoryPosition: &casa.Position{Longitude: -0.0386, Latitude: 0.9298, Radius: 6364633},
		Projects:            []string{"TS8004"},
		ReleaseDate:         5071334400,
		Antennas: []casa.Antenna{
			{Name: "Mk2", Position: casa.Position{Longitude: -0.0386, Latitude: 0.9298, Radius: 6364633}},
			{Name: "Kn", Position: casa.Position{Longitude: -0.0523, Latitude: 0.9155, Radius: 6364633}},
		},
		Fields: []casa.Field{
			{Name: "1252+5634", PhaseCenter: &casa.Direction{RA: 3.3685, Dec: 0.9876}, Scans: []int{1, 3}, Exposure: 120},
			{Name: "1331+3030", Scans: []int{2}, Exposure: 600},
		},
		SpectralWindows: []casa.SpectralWindow{
			{ChanFreqs: []float64{1.0e9, 1.1e9}, ChanWidths: []float64{1.0e8, 1.0e8}},
			{ChanFreqs: []float64{1.4e9, 1.5e9}, ChanWidths: []float64{1.0e8, 1.0e8}},
		},
		Scans:        []int{1, 2, 3},
		Times:        []float64{5071334400, 5071338000},
		Polarization: casa.Polarization{CorrTypes: []int{5, 6, 7, 8}, NumReceptors: 2},
	}
}

type stubSource struct {
	summaries map[string]*casa.Summary
	fallback  *casa.Summary
	err       error
	calls     []string
}

func (s *stubSource) Summary(ctx context.Context, msPath string) (*casa.Summary, error) {
	s.calls = append(s.calls, msPath)
	if s.err != nil {
		return nil, s.err
	}
	if summary, ok := s.summaries[filepath.Base(msPath)]; ok {
		return summary, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, fmt.Errorf("no summary for %s", msPath)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeObservation lays out a complete observation directory and returns
// its root.
func writeObservation(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), testObsID)
	writeFile(t, filepath.Join(root, testObsID+"_avg.ms", "table.dat"), "visibilities")
	writeFile(t, filepath.Join(root, testObsID+"_avg.ms", "ANTENNA", "table.dat"), "antennas")
	writeFile(t, filepath.Join(root, "weblog", "info", "eMCP_info.txt"), testInfo)
	writeFile(t, filepath.Join(root, "weblog", "plots", testObsID+"_avg.ms", "amp_vs_time.png"), "png")
	writeFile(t, filepath.Join(root, "weblog", "plots", "caltables", "bandpass.png"), "png")
	writeFile(t, filepath.Join(root, "weblog", "images", testObsID+"_avg.ms", "1252+5634-image.fits"), "fits")
	writeFile(t, filepath.Join(root, "weblog", "images", testObsID+"_avg.ms", "1252+5634-image.png"), "png")
	return root
}

func stubHeader(path string) (*fits.ImageHeader, error) {
	return &fits.ImageHeader{
		CoordScheme:    2000,
		RAUnit:         "RA---SIN",
		RADeg:          193.0,
		DecUnit:        "DEC--SIN",
		DecDeg:         56.57,
		CentralFreq:    1.5e9,
		PixWidth:       1024,
		PixLength:      512,
		PixWidthScale:  -0.0001,
		PixLengthScale: 0.0001,
	}, nil
}

func newTestAssembler(source casa.Source) *Assembler {
	a := NewAssembler(testNames, source, fileinfo.NewReader(), caom.PolicyTruncate)
	a.readHeader = stubHeader
	return a
}
