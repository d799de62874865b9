// Package casa obtains measurement-set metadata. The metadata itself is
// produced by casatools; this package runs a helper that dumps it as JSON, or
// reads a dump written earlier.
package casa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Source returns the metadata summary of the measurement set at msPath.
type Source interface {
	Summary(ctx context.Context, msPath string) (*Summary, error)
}

// CommandError reports a failed helper invocation.
type CommandError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("casa: metadata helper failed for %s: %v", e.Path, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Command runs an external helper with the measurement-set path appended to
// Args and decodes the JSON summary it prints on stdout.
type Command struct {
	Args []string
}

// NewCommand splits a command line on whitespace.
func NewCommand(commandLine string) *Command {
	return &Command{Args: strings.Fields(commandLine)}
}

func (c *Command) Summary(ctx context.Context, msPath string) (*Summary, error) {
	if len(c.Args) == 0 {
		return nil, &CommandError{Path: msPath, Err: fmt.Errorf("no helper command configured")}
	}
	args := append(append([]string{}, c.Args[1:]...), msPath)
	cmd := exec.CommandContext(ctx, c.Args[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.DebugContext(ctx, "running metadata helper", "command", c.Args[0], "ms", msPath)
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Path: msPath, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return decode(msPath, stdout.Bytes())
}

// DumpSuffix names the JSON file FileSource reads next to a measurement set.
const DumpSuffix = ".msmd.json"

// FileSource reads a summary previously dumped to "{ms}.msmd.json".
type FileSource struct{}

func (FileSource) Summary(ctx context.Context, msPath string) (*Summary, error) {
	path := filepath.Clean(msPath) + DumpSuffix
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("casa: read metadata dump: %w", err)
	}
	return decode(msPath, data)
}

func decode(msPath string, data []byte) (*Summary, error) {
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("casa: decode metadata for %s: %w", msPath, err)
	}
	return &summary, nil
}
