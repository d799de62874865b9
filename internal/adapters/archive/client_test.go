package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recorded struct {
	method      string
	path        string
	query       string
	contentType string
	auth        string
	body        string
}

func newTestServer(t *testing.T, status int, respond string, calls *[]recorded) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*calls = append(*calls, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.Query().Get("QUERY"),
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			body:        string(body),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respond))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Post(t *testing.T) {
	var calls []recorded
	server := newTestServer(t, http.StatusCreated, "", &calls)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client, err := NewClient(Options{BaseURL: server.URL + "/observations/EMERLIN", Token: "secret", Metrics: metrics})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	code, err := client.Post(context.Background(), "TS8004", []byte("<caom2:Observation/>"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if code != http.StatusCreated {
		t.Errorf("code = %d, want 201", code)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	got := calls[0]
	if got.method != http.MethodPost || got.path != "/observations/EMERLIN/TS8004" {
		t.Errorf("request = %s %s", got.method, got.path)
	}
	if got.contentType != "text/xml" {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	if got.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", got.auth)
	}
	if got.body != "<caom2:Observation/>" {
		t.Errorf("body = %q", got.body)
	}

	if n := testutil.ToFloat64(metrics.requests.WithLabelValues("POST", "201")); n != 1 {
		t.Errorf("requests_total{POST,201} = %v, want 1", n)
	}
	if n := testutil.CollectAndCount(metrics.duration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestClient_PostToCollection(t *testing.T) {
	var calls []recorded
	server := newTestServer(t, http.StatusCreated, "", &calls)

	client, err := NewClient(Options{
		BaseURL:          server.URL + "/observations/EMERLIN",
		ContentType:      "application/xml",
		PostToCollection: true,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Post(context.Background(), "TS8004", []byte("<x/>")); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if calls[0].path != "/observations/EMERLIN" {
		t.Errorf("path = %q, want the collection endpoint", calls[0].path)
	}
	if calls[0].contentType != "application/xml" {
		t.Errorf("Content-Type = %q", calls[0].contentType)
	}
}

func TestClient_PutDelete(t *testing.T) {
	var calls []recorded
	server := newTestServer(t, http.StatusNoContent, "", &calls)

	client, err := NewClient(Options{BaseURL: server.URL + "/observations/EMERLIN/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Put(context.Background(), "TS8004_C_001", []byte("<x/>")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	code, err := client.Delete(context.Background(), "TS8004_C_001")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if code != http.StatusNoContent {
		t.Errorf("code = %d, want 204", code)
	}

	want := []struct{ method, path string }{
		{http.MethodPut, "/observations/EMERLIN/TS8004_C_001"},
		{http.MethodDelete, "/observations/EMERLIN/TS8004_C_001"},
	}
	for i, w := range want {
		if calls[i].method != w.method || calls[i].path != w.path {
			t.Errorf("call %d = %s %s, want %s %s", i, calls[i].method, calls[i].path, w.method, w.path)
		}
	}
	if calls[1].contentType != "" || calls[1].auth != "" {
		t.Errorf("delete headers = %+v", calls[1])
	}
}

func TestClient_StatusError(t *testing.T) {
	var calls []recorded
	server := newTestServer(t, http.StatusNotFound, "no such observation\n", &calls)

	client, _ := NewClient(Options{BaseURL: server.URL})
	code, err := client.Delete(context.Background(), "12345")
	if code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", code)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.Body != "no such observation" || statusErr.Method != http.MethodDelete {
		t.Errorf("unexpected error %+v", statusErr)
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	client, _ := NewClient(Options{BaseURL: url, Metrics: metrics})
	_, err := client.Post(context.Background(), "x", []byte("<x/>"))

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected *ClientError, got %T: %v", err, err)
	}
	if n := testutil.ToFloat64(metrics.requests.WithLabelValues("POST", "error")); n != 1 {
		t.Errorf("requests_total{POST,error} = %v, want 1", n)
	}
}

func TestClient_Exists(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantIDs   int
		none      bool
		one       bool
		ambiguous bool
	}{
		{"none", `{"metadata":[{"name":"id"}],"data":[]}`, 0, true, false, false},
		{"one", `{"data":[["0191a3e4-3c1b-7cc2-9b1e-7f6b7d3e2a10"]]}`, 1, false, true, false},
		{"many", `{"data":[["a"],["b"]]}`, 2, false, false, true},
		{"bare rows", `[["a"]]`, 1, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []recorded
			server := newTestServer(t, http.StatusOK, tt.response, &calls)
			client, _ := NewClient(Options{BaseURL: server.URL + "/torkeep/observations/EMERLIN"})

			found, err := client.Exists(context.Background(), "caom:EMERLIN/TS8004")
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if len(found.IDs) != tt.wantIDs || found.None() != tt.none || found.One() != tt.one || found.Ambiguous() != tt.ambiguous {
				t.Errorf("got %+v", found)
			}
			if calls[0].path != "/torkeep/tap/sync" {
				t.Errorf("path = %q", calls[0].path)
			}
			if calls[0].query != "SELECT id FROM Observation WHERE uri='caom:EMERLIN/TS8004'" {
				t.Errorf("query = %q", calls[0].query)
			}
		})
	}
}

func TestClient_ExistsBadResponse(t *testing.T) {
	var calls []recorded
	server := newTestServer(t, http.StatusOK, "<html>", &calls)
	client, _ := NewClient(Options{BaseURL: server.URL})

	if _, err := client.Exists(context.Background(), "caom:EMERLIN/X"); err == nil {
		t.Fatal("expected error for non-json response")
	}
}

func TestNewClient_RootCA(t *testing.T) {
	if _, err := NewClient(Options{BaseURL: "https://example.org", RootCA: "/nonexistent/rootca.pem"}); err == nil {
		t.Fatal("expected error for missing root CA")
	}
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestDefaultTAPURL(t *testing.T) {
	got := DefaultTAPURL("https://src-data-repo.co.uk/torkeep/observations/EMERLIN")
	if !strings.HasSuffix(got, "/torkeep/tap") {
		t.Errorf("DefaultTAPURL = %q", got)
	}
}
