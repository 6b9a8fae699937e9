package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/model"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the feed as JSON to DATA_PATH/notes.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default DATA_PATH/notes.json)")

	return cmd
}

// ExportResult is the json/yaml output of the export command.
type ExportResult struct {
	Path  string `json:"path"  yaml:"path"`
	Notes int    `json:"notes" yaml:"notes"`
}

func runExport(cmd *cobra.Command, opts *RootOptions, output string) error {
	a, err := openApp(cmd, opts, config.Storage)
	if err != nil {
		return err
	}
	defer a.Close()

	if output == "" {
		output = a.cfg.ExportPath()
	}

	notes, err := a.feed.List(cmd.Context())
	if err != nil {
		return err
	}

	if err := writeJSONFile(output, notes); err != nil {
		return err
	}
	a.logger.Debug("feed exported", slog.String("path", output), slog.Int("notes", len(notes)))

	result := ExportResult{Path: output, Notes: len(notes)}
	return printResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Exported %d note(s) to %s\n", len(notes), output)
		return err
	})
}

// writeJSONFile writes notes to a temporary file next to path and renames
// it into place, so readers never see a partial export.
func writeJSONFile(path string, notes []model.FeedEntry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".notes-*.json")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after the rename

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(notes); err != nil {
		tmp.Close()
		return fmt.Errorf("export: encoding: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
