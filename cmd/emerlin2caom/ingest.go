package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/uksrc/emerlin2caom/internal/adapters/archive"
	"github.com/uksrc/emerlin2caom/internal/adapters/casa"
	"github.com/uksrc/emerlin2caom/internal/caom"
	"github.com/uksrc/emerlin2caom/internal/config"
	"github.com/uksrc/emerlin2caom/internal/fileinfo"
	"github.com/uksrc/emerlin2caom/internal/ingestion"
	"github.com/uksrc/emerlin2caom/internal/model"
	"github.com/uksrc/emerlin2caom/internal/storage"
)

type ingestOptions struct {
	runID       string
	jobs        int
	metricsFile string
}

func newIngestCmd(g *globals) *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest [observation dirs...]",
		Short: "Build CAOM2 observations for pipeline output directories",
		Long: "Build the correlator, antenna and target observations of each directory.\n" +
			"Relative directories are resolved against storage_path when it is set.",
		Args: args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, dirs []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), cmd.OutOrStdout(), cfg, opts, dirs)
		},
	}
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "UUIDv7 recorded as provenance run id (generated when empty)")
	cmd.Flags().IntVar(&opts.jobs, "jobs", 1, "number of observation directories processed concurrently")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write archive request metrics in Prometheus text format")
	return cmd
}

func runIngest(ctx context.Context, out io.Writer, cfg *config.Config, opts *ingestOptions, dirs []string) error {
	if opts.jobs < 1 {
		return &usageError{fmt.Errorf("--jobs must be at least 1, got %d", opts.jobs)}
	}
	runID := model.RunID(opts.runID)
	if runID == "" {
		id, err := model.NewRunID()
		if err != nil {
			return err
		}
		runID = id
	}
	if err := runID.Validate(); err != nil {
		return &usageError{err}
	}

	policy, err := caom.ParsePolicy(cfg.URIPolicy)
	if err != nil {
		return &usageError{err}
	}

	reg := prometheus.NewRegistry()
	svc, err := newService(ctx, cfg, policy, archive.NewMetrics(reg))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "starting ingestion", "run_id", runID, "observations", len(dirs), "jobs", opts.jobs,
		"upload", cfg.Upload, "replace", cfg.Replace)

	var (
		mu        sync.Mutex
		skipped   []error
		reports   = make([]*ingestion.Report, len(dirs))
		eg, egCtx = errgroup.WithContext(ctx)
	)
	eg.SetLimit(opts.jobs)
	for i, dir := range dirs {
		eg.Go(func() error {
			report, err := svc.Ingest(egCtx, resolveDir(cfg.StoragePath, dir), runID)
			reports[i] = report
			var input *ingestion.InputError
			if errors.As(err, &input) {
				// A malformed directory does not stop the others.
				slog.ErrorContext(egCtx, "observation skipped", "dir", dir, "error", err)
				mu.Lock()
				skipped = append(skipped, err)
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	err = eg.Wait()

	renderReports(out, reports)
	if opts.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(opts.metricsFile, reg); werr != nil {
			slog.WarnContext(ctx, "failed to write metrics", "path", opts.metricsFile, "error", werr)
		}
	}
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		return errors.Join(skipped...)
	}
	slog.InfoContext(ctx, "shutdown complete", "run_id", runID)
	return nil
}

func newService(ctx context.Context, cfg *config.Config, policy caom.ShortenPolicy, metrics *archive.Metrics) (*ingestion.Service, error) {
	var source casa.Source = casa.FileSource{}
	if cfg.MSMDCommand != "" {
		source = casa.NewCommand(cfg.MSMDCommand)
	}
	assembler := ingestion.NewAssembler(cfg.Names(), source, fileinfo.NewReader(), policy)

	var remote ingestion.Archive
	if cfg.Upload {
		client, err := archive.NewClient(archiveOptions(cfg, metrics))
		if err != nil {
			return nil, &usageError{err}
		}
		remote = client
	}

	var mirror ingestion.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := storage.NewMinIOClient(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, &ingestion.StorageError{Target: cfg.MinIOEndpoint, Err: err}
		}
		slog.InfoContext(ctx, "mirroring documents", "endpoint", cfg.MinIOEndpoint, "bucket", client.Bucket(), "prefix", cfg.MinIOPrefix)
		mirror = client
	}

	if err := os.MkdirAll(cfg.XMLDir, 0o755); err != nil {
		return nil, &ingestion.StorageError{Target: cfg.XMLDir, Err: err}
	}
	return ingestion.NewService(assembler, remote, mirror, ingestion.ServiceConfig{
		XMLDir:       cfg.XMLDir,
		MirrorPrefix: cfg.MinIOPrefix,
		Replace:      cfg.Replace,
	}), nil
}

func archiveOptions(cfg *config.Config, metrics *archive.Metrics) archive.Options {
	return archive.Options{
		BaseURL:          cfg.ArchiveURL,
		TAPURL:           cfg.TAPURL,
		Token:            cfg.Token,
		RootCA:           cfg.RootCA,
		ContentType:      cfg.ContentType,
		PostToCollection: cfg.PostToCollection,
		Timeout:          cfg.HTTPTimeout,
		Metrics:          metrics,
	}
}

func resolveDir(storagePath, dir string) string {
	if storagePath == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(storagePath, dir)
}

func renderReports(w io.Writer, reports []*ingestion.Report) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeader([]string{"Observation", "Documents", "Posted", "Replaced", "Skipped", "Failed", "Collisions"})
	for _, r := range reports {
		if r == nil {
			continue
		}
		table.Append([]string{
			r.ObservationID,
			strconv.Itoa(len(r.Files)),
			strconv.Itoa(r.Count(ingestion.OutcomePosted)),
			strconv.Itoa(r.Count(ingestion.OutcomeReplaced)),
			strconv.Itoa(r.Count(ingestion.OutcomeExisting) + r.Count(ingestion.OutcomeAmbiguous)),
			strconv.Itoa(r.Count(ingestion.OutcomeFailed)),
			strconv.Itoa(r.Collisions),
		})
	}
	table.Render()
}
