package cmd

import (
	"context"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/ecsadmin/pkg/adminserver"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

var systemCmd = &cobra.Command{
	Use:   "system <id> <on|off>",
	Short: "Enables or disables a system",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		enabled, err := parseToggle(args[1])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		err = adminserver.NewClient(address).EnableSystem(ctx, id, enabled)
		if errors.Is(err, worldstats.ErrSystemNotFound) {
			return errors.Errorf("system %q not found", id)
		}
		if err != nil {
			return err
		}

		log.WithFields(map[string]interface{}{
			"system":  id,
			"enabled": enabled,
		}).Info("system updated")
		return nil
	},
}
