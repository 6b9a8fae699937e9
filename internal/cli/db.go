package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/config"
)

// NewDBCommand creates the db command group.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(newDBBackupCommand(rootOpts, time.Now))

	return cmd
}

// BackupResult is the json/yaml output of db backup.
type BackupResult struct {
	Path string `json:"path" yaml:"path"`
}

func newDBBackupCommand(rootOpts *RootOptions, now func() time.Time) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database",
		Long: `Write a consistent copy of the database, safe to run while the server is
up. The default destination is DATA_PATH/backups/notes-YYYYMMDD-HHMMSS.db.
An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts, config.Storage)
			if err != nil {
				return err
			}
			defer a.Close()

			dest := output
			if dest == "" {
				dest = filepath.Join(a.cfg.BackupDir(), "notes-"+now().Format("20060102-150405")+".db")
			}

			if err := a.db.Backup(cmd.Context(), dest); err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), rootOpts.Format, BackupResult{Path: dest}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Backup written to %s\n", dest)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "backup file (default DATA_PATH/backups/notes-<time>.db)")

	return cmd
}
