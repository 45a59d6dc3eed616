package cmd

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/ecsadmin/pkg/adminserver"
)

var profileCmd = &cobra.Command{
	Use:       "profile <frame|system> <on|off>",
	Short:     "Enables or disables frame or system profiling",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"frame", "system"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := parseToggle(args[1])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		client := adminserver.NewClient(address)
		switch args[0] {
		case "frame":
			err = client.SetFrameProfiling(ctx, enabled)
		case "system":
			err = client.SetSystemProfiling(ctx, enabled)
		default:
			return fmt.Errorf("unknown profiling kind %q", args[0])
		}
		if err != nil {
			return err
		}

		log.WithField(args[0]+"-profiling", enabled).Info("profiling updated")
		return nil
	},
}

func parseToggle(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
