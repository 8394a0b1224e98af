package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"medshelf/m/internal/export"
	"medshelf/m/internal/seed"
)

type skippedRow struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

func newImportCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv>",
		Short: "Import medicines from a CSV file",
		Long: "Import medicines from a CSV file whose header names the columns\n" +
			"brandName,saltName,companyName,dosageForm,quantity,price.\n" +
			"Invalid rows are reported and skipped; valid rows are stored together.",
		Example: "  medshelf import catalog.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("import requires exactly one csv path")
			}
			return withSession(cmd.Context(), deps, func(ctx context.Context, s *session) error {
				result, err := seed.LoadFile(ctx, s.repo, args[0], s.logger)
				if err != nil {
					return err
				}
				skipped := make([]skippedRow, 0, len(result.Skipped))
				for _, sk := range result.Skipped {
					skipped = append(skipped, skippedRow{Line: sk.Index + 2, Error: sk.Err.Error()})
				}
				if deps.globals.JSON() {
					return printJSON(deps.out, map[string]any{"added": len(result.Added), "skipped": skipped})
				}
				if _, err := fmt.Fprintf(deps.out, "Imported %d medicines, skipped %d.\n", len(result.Added), len(skipped)); err != nil {
					return err
				}
				for _, sk := range skipped {
					if _, err := fmt.Fprintf(deps.out, "  line %d: %s\n", sk.Line, sk.Error); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newExportCommand(deps commandDeps) *cobra.Command {
	var (
		dir      string
		encoding string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of every medicine to the configured sink",
		Example: "  medshelf export\n" +
			"  medshelf export --dir backups --encoding yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("export does not accept positional arguments")
			}
			return withSession(cmd.Context(), deps, func(ctx context.Context, s *session) error {
				cfg := s.cfg.Export
				if dir != "" {
					cfg.Driver, cfg.Dir = "fs", dir
				}
				if encoding != "" {
					cfg.Format = encoding
				}
				sink, err := export.NewSink(ctx, cfg)
				if err != nil {
					return err
				}
				exporter, err := export.New(s.repo, sink, cfg.Format, s.logger)
				if err != nil {
					return err
				}
				result, err := exporter.Run(ctx)
				if err != nil {
					return err
				}
				if deps.globals.JSON() {
					return printJSON(deps.out, map[string]any{"location": result.Location, "count": result.Count})
				}
				_, err = fmt.Fprintf(deps.out, "Exported %d medicines to %s\n", result.Count, result.Location)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Write to this directory instead of the configured sink")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Document encoding: json or yaml (default from config)")
	return cmd
}
