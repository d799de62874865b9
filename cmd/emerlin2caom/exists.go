package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uksrc/emerlin2caom/internal/adapters/archive"
	"github.com/uksrc/emerlin2caom/internal/caom"
	"github.com/uksrc/emerlin2caom/internal/config"
)

func newExistsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "exists [observation id or uri]",
		Short: "Query the archive for records of an observation",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cfg.ArchiveURL == "" {
				return &config.ErrMissingRequired{Name: "archive_url"}
			}
			client, err := archive.NewClient(archiveOptions(cfg, nil))
			if err != nil {
				return &usageError{err}
			}

			uri := a[0]
			if !strings.HasPrefix(uri, "caom:") {
				uri = caom.ObservationURI(cfg.Collection, uri)
			}
			existing, err := client.Exists(cmd.Context(), uri)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d record(s)\n", existing.URI, len(existing.IDs))
			for _, id := range existing.IDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
