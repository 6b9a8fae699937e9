package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/model"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the feed, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts)
		},
	}
}

func runList(cmd *cobra.Command, opts *RootOptions) error {
	a, err := openApp(cmd, opts, config.Storage)
	if err != nil {
		return err
	}
	defer a.Close()

	notes, err := a.feed.List(cmd.Context())
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), opts.Format, notes, func(w io.Writer) error {
		return writeFeedText(w, notes)
	})
}

// writeFeedText prints each note as its timestamp and content, with a
// blank line between notes.
func writeFeedText(w io.Writer, notes []model.FeedEntry) error {
	for i, note := range notes {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", note.RenderedTimestamp(), note.Content); err != nil {
			return err
		}
	}
	return nil
}
