package cmd

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/ecsadmin/pkg/adminserver"
	"github.com/voluzi/ecsadmin/pkg/environ"
)

var logLevel string
var address string
var timeout time.Duration

var rootCmd = &cobra.Command{
	Use:   "ecsadmin",
	Short: "Runtime statistics and controls for an ECS world",
	Long:  `ecsadmin serves live world statistics over HTTP and talks to a running admin server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(logLvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel,
		"log-level",
		environ.GetString("LOG_LEVEL", "info"),
		"Log level. One of trace, debug, info, warn, error, fatal, panic.",
	)
	rootCmd.PersistentFlags().StringVar(&address,
		"address",
		environ.GetString("ADMIN_ADDRESS", fmt.Sprintf("localhost:%d", adminserver.DefaultPort)),
		"Address of the admin server used by client commands",
	)
	rootCmd.PersistentFlags().DurationVar(&timeout,
		"timeout",
		environ.GetDuration("ADMIN_TIMEOUT", 10*time.Second),
		"Timeout for requests to the admin server",
	)

	rootCmd.AddCommand(serveCmd, getCmd, profileCmd, systemCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
