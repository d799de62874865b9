package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/uksrc/emerlin2caom/internal/adapters/archive"
	"github.com/uksrc/emerlin2caom/internal/adapters/casa"
	"github.com/uksrc/emerlin2caom/internal/caom"
	"github.com/uksrc/emerlin2caom/internal/config"
	"github.com/uksrc/emerlin2caom/internal/exitcode"
	"github.com/uksrc/emerlin2caom/internal/ingestion"
)

const testObsID = "TS8004_C_001_20190801"

func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout bytes.Buffer
	args = append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	code := execute(context.Background(), args, &stdout, io.Discard)
	return code, stdout.String()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeObservation lays out a directory FileSource can read without CASA.
func writeObservation(t *testing.T, parent string) string {
	t.Helper()
	root := filepath.Join(parent, testObsID)
	ms := filepath.Join(root, testObsID+"_avg.ms")
	writeFile(t, filepath.Join(ms, "table.dat"), []byte("visibilities"))
	writeFile(t, filepath.Join(root, "weblog", "info", "eMCP_info.txt"),
		[]byte("pipeline_version: v1.1.19\ncasa_version: 5.8.0\nrun_date: 2019-08-05 10:22:31\npipeline_path: /opt/eMCP/\n"))

	summary := casa.Summary{
		Observatory: "e-MERLIN",
		Projects:    []string{"TS8004"},
		ReleaseDate: 5071334400,
		Antennas: []casa.Antenna{
			{Name: "Mk2", Position: casa.Position{Longitude: -0.0386, Latitude: 0.9298, Radius: 6364633}},
		},
		Fields: []casa.Field{
			{Name: "1252+5634", PhaseCenter: &casa.Direction{RA: 3.3685, Dec: 0.9876}, Scans: []int{1}, Exposure: 120},
		},
		SpectralWindows: []casa.SpectralWindow{
			{ChanFreqs: []float64{1.4e9, 1.5e9}, ChanWidths: []float64{1.0e8, 1.0e8}},
		},
		Scans:        []int{1},
		Times:        []float64{5071334400, 5071338000},
		Polarization: casa.Polarization{CorrTypes: []int{5, 8}, NumReceptors: 2},
	}
	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, ms+casa.DumpSuffix, data)
	return root
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"usage", &usageError{errors.New("bad flag")}, exitcode.ConfigError},
		{"missing setting", &config.ErrMissingRequired{Name: "token"}, exitcode.ConfigError},
		{"input", &ingestion.InputError{ObservationDir: "/x", Err: errors.New("no ms")}, exitcode.InputError},
		{"joined input", errors.Join(&ingestion.InputError{ObservationDir: "/x", Err: errors.New("no ms")}), exitcode.InputError},
		{"validation", &caom.ValidationError{Entity: "Artifact", Field: "uri", Reason: "empty"}, exitcode.DataError},
		{"storage", &ingestion.StorageError{Target: "/out", Err: errors.New("read-only")}, exitcode.StorageError},
		{"status", fmt.Errorf("post: %w", &archive.StatusError{Method: "POST", StatusCode: 500}), exitcode.APIError},
		{"network", &archive.ClientError{Message: "request failed", Err: errors.New("refused")}, exitcode.NetworkError},
		{"other", errors.New("boom"), exitcode.DataError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExecute_UnknownFlag(t *testing.T) {
	if code, _ := run(t, "ingest", "--no-such-flag", "dir"); code != exitcode.ConfigError {
		t.Fatalf("code = %d, want %d", code, exitcode.ConfigError)
	}
}

func TestExecute_MissingArgs(t *testing.T) {
	if code, _ := run(t, "describe"); code != exitcode.ConfigError {
		t.Fatalf("code = %d, want %d", code, exitcode.ConfigError)
	}
}

func TestExecute_InvalidLogLevel(t *testing.T) {
	if code, _ := run(t, "--log-level", "loud", "band", "1.5e9"); code != exitcode.ConfigError {
		t.Fatalf("code = %d, want %d", code, exitcode.ConfigError)
	}
}

func TestBand(t *testing.T) {
	code, out := run(t, "band", "1.5e9", "5e9")
	if code != exitcode.Success {
		t.Fatalf("code = %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if !strings.Contains(lines[0], "\tL\t") || !strings.Contains(lines[1], "\tC\t") {
		t.Fatalf("unexpected bands: %q", out)
	}

	if code, _ := run(t, "band", "fast"); code != exitcode.ConfigError {
		t.Fatalf("code = %d, want %d", code, exitcode.ConfigError)
	}
}

func TestDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")
	writeFile(t, path, []byte("png"))

	code, out := run(t, "describe", path)
	if code != exitcode.Success {
		t.Fatalf("code = %d", code)
	}
	for _, want := range []string{"plot.png", "image/png", "bff139fa05ac583f685a523ab3d110a0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if code, _ := run(t, "describe", filepath.Join(t.TempDir(), "missing")); code != exitcode.DataError {
		t.Fatalf("code = %d, want %d", code, exitcode.DataError)
	}
}

func TestIngest_WritesDocuments(t *testing.T) {
	data := t.TempDir()
	xmlDir := filepath.Join(t.TempDir(), "xml")
	metrics := filepath.Join(t.TempDir(), "metrics.prom")
	writeObservation(t, data)
	t.Setenv("EMERLIN_XML_DIR", xmlDir)
	t.Setenv("EMERLIN_STORAGE_PATH", data)

	code, out := run(t, "ingest", "--run-id", "01890c24-905b-7122-b170-b60814e6ee06", "--metrics-file", metrics, testObsID)
	if code != exitcode.Success {
		t.Fatalf("code = %d, output:\n%s", code, out)
	}
	for _, name := range []string{testObsID, testObsID + "_Mk2", testObsID + "_1252+5634"} {
		if _, err := os.Stat(filepath.Join(xmlDir, name+".xml")); err != nil {
			t.Errorf("missing %s.xml: %v", name, err)
		}
	}
	if !strings.Contains(out, testObsID) {
		t.Errorf("summary table missing observation:\n%s", out)
	}
	if _, err := os.Stat(metrics); err != nil {
		t.Errorf("metrics file not written: %v", err)
	}

	obs, err := caom.ReadFile(filepath.Join(xmlDir, testObsID+".xml"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := obs.Planes()[0].Provenance.RunID; got != "01890c24-905b-7122-b170-b60814e6ee06" {
		t.Errorf("run id = %q", got)
	}
}

func TestIngest_ContinuesPastBadDirectory(t *testing.T) {
	data := t.TempDir()
	xmlDir := t.TempDir()
	writeObservation(t, data)
	if err := os.MkdirAll(filepath.Join(data, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EMERLIN_XML_DIR", xmlDir)

	code, _ := run(t, "ingest", "--jobs", "2", filepath.Join(data, "empty"), filepath.Join(data, testObsID))
	if code != exitcode.InputError {
		t.Fatalf("code = %d, want %d", code, exitcode.InputError)
	}
	if _, err := os.Stat(filepath.Join(xmlDir, testObsID+".xml")); err != nil {
		t.Fatalf("good observation not written: %v", err)
	}
}

func TestIngest_RejectedUploadsAreReported(t *testing.T) {
	var posts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/tap/") {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		posts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	data := t.TempDir()
	xmlDir := t.TempDir()
	root := writeObservation(t, data)
	t.Setenv("EMERLIN_XML_DIR", xmlDir)
	t.Setenv("EMERLIN_UPLOAD", "true")
	t.Setenv("EMERLIN_ARCHIVE_URL", server.URL+"/observations/EMERLIN")
	t.Setenv("EMERLIN_TOKEN", "secret")

	code, out := run(t, "ingest", root)
	if code != exitcode.Success {
		t.Fatalf("code = %d, output:\n%s", code, out)
	}
	if n := posts.Load(); n != 3 {
		t.Fatalf("posts = %d, want 3", n)
	}
	entries, _ := os.ReadDir(xmlDir)
	if len(entries) != 3 {
		t.Fatalf("xml files = %d, want 3", len(entries))
	}
}

func TestIngest_InvalidOptions(t *testing.T) {
	t.Setenv("EMERLIN_XML_DIR", t.TempDir())
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"jobs", []string{"--jobs", "0"}, nil},
		{"run id", []string{"--run-id", "not-a-uuid"}, nil},
		{"policy", nil, map[string]string{"EMERLIN_URI_POLICY": "random"}},
		{"upload without token", nil, map[string]string{"EMERLIN_UPLOAD": "true", "EMERLIN_ARCHIVE_URL": "https://example.org/observations/EMERLIN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append(append([]string{"ingest"}, tt.args...), t.TempDir())
			if code, _ := run(t, args...); code != exitcode.ConfigError {
				t.Fatalf("code = %d, want %d", code, exitcode.ConfigError)
			}
		})
	}
}

func TestExists_RequiresArchiveURL(t *testing.T) {
	if code, _ := run(t, "exists", testObsID); code != exitcode.ConfigError {
		t.Fatalf("code = %d, want %d", code, exitcode.ConfigError)
	}
}

func TestResolveDir(t *testing.T) {
	if got := resolveDir("", "obs"); got != "obs" {
		t.Errorf("resolveDir() = %q", got)
	}
	if got := resolveDir("/data", "obs"); got != filepath.Join("/data", "obs") {
		t.Errorf("resolveDir() = %q", got)
	}
	if got := resolveDir("/data", "/abs/obs"); got != "/abs/obs" {
		t.Errorf("resolveDir() = %q", got)
	}
}
