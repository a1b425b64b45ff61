package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds the version subcommand every
// smart-dial binary carries. dial-updater runs `dial-daemon version`
// and parses the printed line when probing an installation, keep the
// output format stable.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and build information.",
		Long:  "Print the semantic version, commit hash and build timestamp stamped into this binary.",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
