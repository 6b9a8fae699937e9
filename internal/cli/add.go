package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/notes/internal/config"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <handle> <content>",
		Short: "Add a note as an existing user",
		Long: `Add a note timestamped now, authored by the user with the given handle
or GitHub login. The user must have logged in through the web once.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, rootOpts, args[0], args[1])
		},
	}
}

func runAdd(cmd *cobra.Command, opts *RootOptions, handle, content string) error {
	a, err := openApp(cmd, opts, config.Storage)
	if err != nil {
		return err
	}
	defer a.Close()

	author, err := a.users.FindUser(cmd.Context(), handle)
	if err != nil {
		return err
	}

	note, err := a.feed.Import(cmd.Context(), author, time.Time{}, content)
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), opts.Format, note, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Added note %s\n", note.ID)
		return err
	})
}
