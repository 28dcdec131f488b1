package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/ingest"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/metrics"
)

func newImportCommand(configPath *string) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank statement CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pending == (len(args) > 0) {
				return errors.New("pass CSV files or --pending, not both")
			}

			p, err := openProject(cmd, *configPath)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := logger.WithContext(cmd.Context(), p.log)
			svc := ingest.NewService(p.store,
				ingest.WithImportLog(p.importLogPath()),
				ingest.WithMetrics(metrics.New(prometheus.NewRegistry())),
			)
			if pending {
				return runImportPending(ctx, cmd.OutOrStdout(), svc, p.root)
			}
			return runImport(ctx, cmd.OutOrStdout(), svc, args)
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "import every CSV in import/ and move it to import/processed/")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, svc *ingest.Service, paths []string) error {
	failed := 0
	for _, path := range paths {
		if err := importFile(ctx, out, svc, path); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(paths))
	}
	return nil
}

func runImportPending(ctx context.Context, out io.Writer, svc *ingest.Service, root string) error {
	files, err := importer.Scan(root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No pending statements.")
		return nil
	}

	failed := 0
	for _, f := range files {
		if err := importFile(ctx, out, svc, f.Path); err != nil {
			failed++
			continue
		}
		if err := importer.MarkProcessed(root, f.Name); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(files))
	}
	return nil
}

// importFile imports one file and prints a one-line result for it.
func importFile(ctx context.Context, out io.Writer, svc *ingest.Service, path string) error {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", name, err)
		return err
	}
	defer f.Close()

	rep, err := svc.Import(ctx, name, f)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", name, err)
		return err
	}
	fmt.Fprintf(out, "%s: imported %d, skipped %d\n", name, rep.Accepted, rep.Skipped)
	return nil
}
