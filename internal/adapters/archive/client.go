package archive

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultTimeout = 60 * time.Second
	// DefaultContentType is sent with every observation document.
	DefaultContentType = "text/xml"

	acceptType   = "application/xml"
	maxErrorBody = 512
)

// Options configure a Client. BaseURL is the observations endpoint,
// e.g. https://host/torkeep/observations/EMERLIN.
//
// Post goes to {BaseURL}/{observation id} unless PostToCollection is set, in
// which case it goes to BaseURL itself.
type Options struct {
	BaseURL          string
	TAPURL           string
	Token            string
	RootCA           string
	ContentType      string
	PostToCollection bool
	Timeout          time.Duration
	Metrics          *Metrics
}

// Client talks to the archive observation and TAP endpoints.
type Client struct {
	baseURL          string
	tapURL           string
	token            string
	contentType      string
	postToCollection bool
	httpClient       *http.Client
	metrics    *Metrics
}

// DefaultTAPURL derives the TAP service from the observations endpoint.
func DefaultTAPURL(baseURL string) string {
	return strings.TrimSuffix(strings.Split(baseURL, "/observations")[0], "/") + "/tap"
}

// NewClient creates a new archive client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, &ClientError{Message: "invalid options", Err: fmt.Errorf("empty base url")}
	}
	c := &Client{
		baseURL:          strings.TrimSuffix(opts.BaseURL, "/"),
		tapURL:           strings.TrimSuffix(opts.TAPURL, "/"),
		token:            opts.Token,
		contentType:      opts.ContentType,
		postToCollection: opts.PostToCollection,
		metrics:          opts.Metrics,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
	if c.tapURL == "" {
		c.tapURL = DefaultTAPURL(c.baseURL)
	}
	if c.contentType == "" {
		c.contentType = DefaultContentType
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = DefaultTimeout
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	if opts.RootCA != "" {
		pool, err := loadRootCA(opts.RootCA)
		if err != nil {
			return nil, &ClientError{Message: "failed to load root CA", Err: err}
		}
		c.httpClient.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		}
	}
	return c, nil
}

func loadRootCA(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates in %s", path)
	}
	return pool, nil
}

// Post creates a new observation record.
func (c *Client) Post(ctx context.Context, observationID string, doc []byte) (int, error) {
	target := c.observationURL(observationID)
	if c.postToCollection {
		target = c.baseURL
	}
	return c.send(ctx, http.MethodPost, target, observationID, doc)
}

// Put replaces the record stored under observationID.
func (c *Client) Put(ctx context.Context, observationID string, doc []byte) (int, error) {
	return c.send(ctx, http.MethodPut, c.observationURL(observationID), observationID, doc)
}

// Delete removes the record stored under observationID.
func (c *Client) Delete(ctx context.Context, observationID string) (int, error) {
	return c.send(ctx, http.MethodDelete, c.observationURL(observationID), observationID, nil)
}

func (c *Client) observationURL(observationID string) string {
	return c.baseURL + "/" + url.PathEscape(observationID)
}

func (c *Client) send(ctx context.Context, method, target, observationID string, doc []byte) (int, error) {
	slog.DebugContext(ctx, "sending observation", "method", method, "observation_id", observationID, "bytes", len(doc))
	headers := map[string]string{"Accept": acceptType}
	var body io.Reader
	if doc != nil {
		body = bytes.NewReader(doc)
		headers["Content-Type"] = c.contentType
	}

	resp, err := c.doRequest(ctx, method, target, body, headers)
	if err != nil {
		return 0, &ClientError{Message: method + " " + target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, statusError(method, target, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) doRequest(ctx context.Context, method, target string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	code := 0
	if err == nil {
		code = resp.StatusCode
	}
	c.metrics.observe(method, code, time.Since(start))
	if err != nil {
		slog.ErrorContext(ctx, "archive request failed", "method", method, "url", target, "error", err)
		return nil, err
	}
	slog.InfoContext(ctx, "archive request", "method", method, "url", target, "status", code)
	return resp, nil
}

func statusError(method, target string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method:     method,
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(msg)),
	}
}

// Existing holds the record ids found for an observation URI.
type Existing struct {
	URI string
	IDs []string
}

func (e Existing) None() bool      { return len(e.IDs) == 0 }
func (e Existing) One() bool       { return len(e.IDs) == 1 }
func (e Existing) Ambiguous() bool { return len(e.IDs) > 1 }

// Exists asks the TAP service for records carrying observationURI.
func (c *Client) Exists(ctx context.Context, observationURI string) (Existing, error) {
	query := url.Values{}
	query.Set("REQUEST", "doQuery")
	query.Set("LANG", "ADQL")
	query.Set("FORMAT", "json")
	query.Set("QUERY", "SELECT id FROM Observation WHERE uri='"+strings.ReplaceAll(observationURI, "'", "''")+"'")
	target := c.tapURL + "/sync?" + query.Encode()

	resp, err := c.doRequest(ctx, http.MethodGet, target, nil, map[string]string{"Accept": "application/json"})
	if err != nil {
		return Existing{}, &ClientError{Message: "tap query for " + observationURI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Existing{}, statusError(http.MethodGet, target, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Existing{}, &ClientError{Message: "read tap response", Err: err}
	}
	ids, err := recordIDs(body)
	if err != nil {
		return Existing{}, &ClientError{Message: "decode tap response for " + observationURI, Err: err}
	}

	found := Existing{URI: observationURI, IDs: ids}
	if found.Ambiguous() {
		slog.WarnContext(ctx, "duplicate records found", "uri", observationURI, "ids", ids)
	}
	return found, nil
}

// recordIDs reads the first column of each row, from either a
// {"data": [[...], ...]} document or a bare array of rows.
func recordIDs(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json")
	}
	doc := gjson.ParseBytes(body)
	rows := doc.Get("data")
	if !rows.Exists() {
		rows = doc
	}
	if !rows.IsArray() {
		return nil, fmt.Errorf("no result rows")
	}
	var ids []string
	for _, row := range rows.Array() {
		id := row
		if row.IsArray() {
			id = row.Get("0")
		}
		if id.String() != "" {
			ids = append(ids, id.String())
		}
	}
	return ids, nil
}
