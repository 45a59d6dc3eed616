package cmd

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/voluzi/ecsadmin/pkg/adminserver"
)

var compact bool

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Prints the latest world snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		body, _, err := adminserver.NewClient(address).GetWorldRaw(ctx)
		if err != nil {
			return err
		}

		if !compact {
			var out bytes.Buffer
			if err := json.Indent(&out, body, "", "  "); err != nil {
				return err
			}
			body = out.Bytes()
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&compact, "compact", false, "Print the snapshot without indentation")
}
