package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/ecsadmin/pkg/adminserver"
	"github.com/voluzi/ecsadmin/pkg/environ"
	"github.com/voluzi/ecsadmin/pkg/statscollector"
)

var host string
var port int
var staticDir string
var settingsFile string
var gzipMinSize string
var interval time.Duration
var targetFPS int
var entities int
var systemProfiling bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs a demo world and serves its statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if targetFPS <= 0 {
			return fmt.Errorf("target fps must be positive")
		}
		if interval <= 0 {
			return fmt.Errorf("interval must be positive")
		}
		if entities < 0 {
			return fmt.Errorf("entities must not be negative")
		}
		if _, err := datasize.ParseString(gzipMinSize); err != nil {
			return fmt.Errorf("invalid gzip min size: %w", err)
		}

		d, err := newDemo(entities)
		if err != nil {
			return err
		}
		d.world.SetSystemProfiling(systemProfiling)

		server, err := adminserver.New(d.world,
			adminserver.WithHost(host),
			adminserver.WithPort(port),
			adminserver.WithStaticDir(staticDir),
			adminserver.WithSettingsFile(settingsFile),
			adminserver.WithGzipMinSize(gzipMinSize),
			adminserver.WithCollectorOptions(statscollector.WithInterval(interval)),
		)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go d.run(ctx, targetFPS)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			log.Infof("received signal: %v", sig)
			cancel()
			if err := server.Stop(); err != nil {
				log.Errorf("failed to stop admin server: %v", err)
			}
		}()

		return server.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&host, "host",
		environ.GetString("HOST", adminserver.DefaultHost),
		"the host at which this server will be listening to",
	)
	serveCmd.Flags().IntVar(&port, "port",
		environ.GetInt("PORT", adminserver.DefaultPort),
		"the port at which this server will be listening to",
	)
	serveCmd.Flags().StringVar(&staticDir, "static-dir",
		environ.GetString("STATIC_DIR", adminserver.DefaultStaticDir),
		"directory with dashboard files, empty to disable",
	)
	serveCmd.Flags().StringVar(&settingsFile, "settings-file",
		environ.GetString("SETTINGS_FILE", ""),
		"YAML or TOML file with profiling settings, watched for changes",
	)
	serveCmd.Flags().StringVar(&gzipMinSize, "gzip-min-size",
		environ.GetString("GZIP_MIN_SIZE", adminserver.DefaultGzipMinSize),
		"smallest snapshot size that is compressed for clients accepting gzip",
	)
	serveCmd.Flags().DurationVar(&interval, "interval",
		environ.GetDuration("INTERVAL", statscollector.DefaultInterval),
		"stats sampling interval",
	)
	serveCmd.Flags().IntVar(&targetFPS, "fps",
		environ.GetInt("FPS", 60),
		"frames per second the demo world runs at",
	)
	serveCmd.Flags().IntVar(&entities, "entities",
		environ.GetInt("ENTITIES", 1000),
		"initial number of entities in the demo world",
	)
	serveCmd.Flags().BoolVar(&systemProfiling, "system-profiling",
		environ.GetBool("SYSTEM_PROFILING", false),
		"measure time spent in each system from the start",
	)
}
