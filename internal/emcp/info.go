// Package emcp reads the eMCP_info.txt summary written by the e-MERLIN CASA
// pipeline.
package emcp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Keys read from the summary when building plane provenance.
const (
	KeyPipelineVersion = "pipeline_version"
	KeyCASAVersion     = "casa_version"
	KeyRunDate         = "run_date"
	KeyPipelinePath    = "pipeline_path"
)

// SyntaxError reports a line that is not a key:value pair.
type SyntaxError struct {
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("emcp: line %d: expected key:value, got %q", e.Line, e.Text)
}

// Info is the flattened summary. Entries nested one level under a section key
// are stored as "section.key".
type Info map[string]string

// Get returns the value for key, or "" when absent.
func (i Info) Get(key string) string {
	return i[key]
}

// Require returns the value for key, failing when it is absent or empty.
func (i Info) Require(key string) (string, error) {
	v, ok := i[key]
	if !ok || v == "" {
		return "", fmt.Errorf("emcp: missing %q", key)
	}
	return v, nil
}

// ReadFile parses the summary at path.
func ReadFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("emcp: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads colon-delimited lines. A key with an empty value opens a
// section; following indented lines belong to it.
func Parse(r io.Reader) (Info, error) {
	info := make(Info)
	section := ""
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, &SyntaxError{Line: lineNo, Text: line}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return nil, &SyntaxError{Line: lineNo, Text: line}
		}

		indented := raw[0] == ' ' || raw[0] == '\t'
		switch {
		case indented && section != "":
			info[section+"."+key] = value
		case value == "":
			section = key
		default:
			section = ""
			info[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("emcp: %w", err)
	}
	return info, nil
}
