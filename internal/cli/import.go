package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/importer"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <handle>",
		Short: "Import open to-dos from the CalDAV task list",
		Long: `Import every incomplete to-do of the CalDAV task list named CALDAV_CALENDAR
as a note by the given user, then delete the to-do from the server.

Each note keeps the to-do's creation time. Requires DATA_PATH and the four
CALDAV_* settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args[0])
		},
	}
}

// ImportResult is the json/yaml output of the import command.
type ImportResult struct {
	Imported int    `json:"imported" yaml:"imported"`
	Calendar string `json:"calendar" yaml:"calendar"`
}

func runImport(cmd *cobra.Command, opts *RootOptions, handle string) error {
	a, err := openApp(cmd, opts, config.Import)
	if err != nil {
		return err
	}
	defer a.Close()

	author, err := a.users.FindUser(cmd.Context(), handle)
	if err != nil {
		return err
	}

	source, err := importer.NewCalDAVSource(importer.CalDAVConfig{
		URL:      a.cfg.CalDAVURL,
		Username: a.cfg.CalDAVUsername,
		Password: a.cfg.CalDAVPassword,
		Calendar: a.cfg.CalDAVCalendar,
	}, a.logger)
	if err != nil {
		return err
	}

	n, err := importer.New(source, a.feed, a.logger).Run(cmd.Context(), author)
	if err != nil {
		return err
	}

	result := ImportResult{Imported: n, Calendar: a.cfg.CalDAVCalendar}
	return printResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Imported %d note(s) from %q\n", n, a.cfg.CalDAVCalendar)
		return err
	})
}
