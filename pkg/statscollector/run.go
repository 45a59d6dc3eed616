package statscollector

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

// Run samples provider once per interval until ctx is cancelled.
func (c *Collector) Run(ctx context.Context, provider worldstats.Provider) {
	ticker := c.cfg.Clock.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	// Discard whatever accumulated before the first interval started.
	if _, err := provider.Stats(); err != nil {
		log.Errorf("error collecting world stats: %v", err)
	}
	last := c.cfg.Clock.Now()

	log.WithField("interval", c.cfg.Interval).Info("stats collector started")
	for {
		select {
		case <-ctx.Done():
			log.Info("stats collector stopped")
			return

		case now := <-ticker.C():
			stats, err := provider.Stats()
			if err != nil {
				// The provider keeps accumulating, so the window stays open until a read succeeds.
				log.Errorf("error collecting world stats: %v", err)
				continue
			}
			elapsed := now.Sub(last).Seconds()
			last = now

			if err := c.OnTick(stats, elapsed); err != nil {
				log.Errorf("error publishing world stats: %v", err)
			}
		}
	}
}
