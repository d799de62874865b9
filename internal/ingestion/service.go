package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/uksrc/emerlin2caom/internal/adapters/archive"
	"github.com/uksrc/emerlin2caom/internal/caom"
	"github.com/uksrc/emerlin2caom/internal/model"
	"github.com/uksrc/emerlin2caom/internal/storage"
)

// Archive stores observation documents remotely.
type Archive interface {
	Exists(ctx context.Context, observationURI string) (archive.Existing, error)
	Post(ctx context.Context, observationID string, doc []byte) (int, error)
	Delete(ctx context.Context, observationID string) (int, error)
}

// ObjectStorage mirrors serialized documents.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data io.Reader, size int64) error
}

// Outcome is what happened to one observation document.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"
	OutcomePosted    Outcome = "posted"
	OutcomeReplaced  Outcome = "replaced"
	OutcomeExisting  Outcome = "skipped_existing"
	OutcomeAmbiguous Outcome = "skipped_ambiguous"
	OutcomeFailed    Outcome = "failed"
)

// ServiceConfig holds the output settings of a Service.
type ServiceConfig struct {
	XMLDir       string
	MirrorPrefix string
	Replace      bool
}

// Report summarizes one Ingest call.
type Report struct {
	ObservationID string
	Files         []string
	Outcomes      map[string]Outcome
	Collisions    int
	Warnings      []error
}

// Count returns how many documents ended with outcome.
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, o := range r.Outcomes {
		if o == outcome {
			n++
		}
	}
	return n
}

// Service orchestrates ingestion steps: assemble, write, mirror, upload.
// archive and objectStorage may be nil to disable those steps.
type Service struct {
	assembler     *Assembler
	archive       Archive
	objectStorage ObjectStorage
	cfg           ServiceConfig
}

func NewService(assembler *Assembler, archive Archive, objectStorage ObjectStorage, cfg ServiceConfig) *Service {
	if cfg.XMLDir == "" {
		cfg.XMLDir = "."
	}
	return &Service{assembler: assembler, archive: archive, objectStorage: objectStorage, cfg: cfg}
}

func (s *Service) Ingest(ctx context.Context, obsDir string, runID model.RunID) (*Report, error) {
	if err := runID.Validate(); err != nil {
		return nil, err
	}

	layout, err := DiscoverLayout(obsDir)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "ingestion started", "observation_id", layout.ObsID, "dir", layout.Root, "run_id", runID)

	set, err := s.assembler.Assemble(ctx, layout, runID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ObservationID: layout.ObsID,
		Outcomes:      make(map[string]Outcome),
		Collisions:    len(set.Collisions),
	}
	for _, c := range set.Collisions {
		report.Warnings = append(report.Warnings, c)
	}

	for _, obs := range set.All() {
		if err := s.store(ctx, obs, report); err != nil {
			return report, err
		}
	}

	slog.InfoContext(ctx, "ingestion complete",
		"observation_id", layout.ObsID,
		"run_id", runID,
		"files", len(report.Files),
		"posted", report.Count(OutcomePosted),
		"replaced", report.Count(OutcomeReplaced),
		"skipped", report.Count(OutcomeExisting)+report.Count(OutcomeAmbiguous),
		"failed", report.Count(OutcomeFailed),
	)
	return report, nil
}

func (s *Service) store(ctx context.Context, obs *caom.Observation, report *Report) error {
	var buf bytes.Buffer
	if err := caom.Write(&buf, obs); err != nil {
		return err
	}
	doc := buf.Bytes()

	path := filepath.Join(s.cfg.XMLDir, obs.ObservationID+".xml")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return &StorageError{Target: path, Err: err}
	}
	report.Files = append(report.Files, path)
	report.Outcomes[obs.ObservationID] = OutcomeWritten

	if s.objectStorage != nil {
		key := storage.ObjectKey{
			Prefix:        s.cfg.MirrorPrefix,
			Collection:    obs.Collection,
			ObservationID: obs.ObservationID,
		}
		if err := s.objectStorage.Put(ctx, key.Key(), bytes.NewReader(doc), int64(len(doc))); err != nil {
			return &StorageError{Target: key.Key(), Err: err}
		}
	}

	if s.archive == nil {
		return nil
	}
	outcome, err := s.upload(ctx, obs, doc)
	var status *archive.StatusError
	if errors.As(err, &status) {
		// A rejected upload is reported; the remaining documents still go out.
		slog.WarnContext(ctx, "archive rejected observation", "uri", obs.URI(), "status", status.StatusCode, "error", err)
		report.Outcomes[obs.ObservationID] = OutcomeFailed
		report.Warnings = append(report.Warnings, err)
		return nil
	}
	if err != nil {
		return err
	}
	report.Outcomes[obs.ObservationID] = outcome
	if outcome == OutcomeAmbiguous {
		report.Warnings = append(report.Warnings, fmt.Errorf("%s: %w", obs.URI(), ErrAmbiguousRecord))
	}
	return nil
}

// upload posts a new record, replaces a single existing one when enabled,
// and otherwise leaves the archive untouched.
func (s *Service) upload(ctx context.Context, obs *caom.Observation, doc []byte) (Outcome, error) {
	found, err := s.archive.Exists(ctx, obs.URI())
	if err != nil {
		return "", err
	}

	switch {
	case found.Ambiguous():
		slog.WarnContext(ctx, "several records exist, skipping", "uri", obs.URI(), "ids", found.IDs)
		return OutcomeAmbiguous, nil
	case found.One() && !s.cfg.Replace:
		slog.WarnContext(ctx, "record exists and replace is disabled, skipping", "uri", obs.URI(), "id", found.IDs[0])
		return OutcomeExisting, nil
	case found.One():
		if _, err := s.archive.Delete(ctx, obs.ObservationID); err != nil {
			return "", fmt.Errorf("replace %s: %w", obs.URI(), err)
		}
		if _, err := s.archive.Post(ctx, obs.ObservationID, doc); err != nil {
			return "", fmt.Errorf("replace %s: %w", obs.URI(), err)
		}
		return OutcomeReplaced, nil
	}

	if _, err := s.archive.Post(ctx, obs.ObservationID, doc); err != nil {
		return "", fmt.Errorf("post %s: %w", obs.URI(), err)
	}
	return OutcomePosted, nil
}
