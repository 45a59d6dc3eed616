package statscollector

import (
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"

	"github.com/voluzi/ecsadmin/pkg/snapshot"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

const (
	// DefaultMeasurementCount is the number of samples per bucket and of buckets retained.
	DefaultMeasurementCount = 60
	DefaultInterval         = time.Second
)

// Options configures a Collector.
type Options struct {
	ShortCapacity  int
	LongCapacity   int
	SeriesCapacity int
	Interval       time.Duration
	Clock          clockz.Clock
}

func defaultOptions() *Options {
	return &Options{
		ShortCapacity:  DefaultMeasurementCount,
		LongCapacity:   DefaultMeasurementCount,
		SeriesCapacity: DefaultMeasurementCount,
		Interval:       DefaultInterval,
		Clock:          clockz.RealClock,
	}
}

type Option func(*Options)

// WithShortCapacity sets the number of ticks folded into one long-term bucket.
func WithShortCapacity(n int) Option {
	return func(opts *Options) {
		opts.ShortCapacity = n
	}
}

// WithLongCapacity sets the number of long-term buckets retained.
func WithLongCapacity(n int) Option {
	return func(opts *Options) {
		opts.LongCapacity = n
	}
}

// WithSeriesCapacity sets the history length of per-system and per-component series.
func WithSeriesCapacity(n int) Option {
	return func(opts *Options) {
		opts.SeriesCapacity = n
	}
}

func WithInterval(d time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = d
	}
}

func WithClock(clock clockz.Clock) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// Collector turns raw world counters into measurements once per tick and
// publishes the serialized result. OnTick and Run must not be called concurrently.
type Collector struct {
	cfg       *Options
	publisher *snapshot.Publisher

	fps    *Measurement
	frame  *Measurement
	system *Measurement

	systems    *SeriesStore
	components *SeriesStore

	tick    uint64
	marshal func(v interface{}) ([]byte, error)
}

// NewCollector creates a Collector publishing to publisher.
func NewCollector(publisher *snapshot.Publisher, opts ...Option) *Collector {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Collector{
		cfg:        options,
		publisher:  publisher,
		fps:        NewMeasurement(options.ShortCapacity, options.LongCapacity),
		frame:      NewMeasurement(options.ShortCapacity, options.LongCapacity),
		system:     NewMeasurement(options.ShortCapacity, options.LongCapacity),
		systems:    NewSeriesStore(options.SeriesCapacity),
		components: NewSeriesStore(options.SeriesCapacity),
		marshal:    json.Marshal,
	}
}

// Interval returns the configured sampling interval.
func (c *Collector) Interval() time.Duration {
	return c.cfg.Interval
}

// OnTick records one sample from stats, covering elapsed seconds, and
// publishes a new snapshot. Ticks without progress are skipped. On error the
// previously published snapshot stays in place.
func (c *Collector) OnTick(stats *worldstats.WorldStats, elapsed float64) error {
	if stats == nil || stats.TickCount == 0 || elapsed <= 0 {
		log.WithField("elapsed", elapsed).Debug("no progress since last tick, skipping")
		return nil
	}

	ticks := float64(stats.TickCount)
	fps := ticks / elapsed
	frame := (stats.FrameTime / ticks) * fps * 100
	system := (stats.SystemTime / ticks) * fps * 100

	c.fps.Record(fps)
	c.frame.Record(frame)
	c.system.Record(system)

	for _, s := range stats.Systems {
		share := 0.0
		if stats.SystemTime > 0 {
			share = s.TimeSpent / stats.SystemTime * 100
		}
		c.systems.Record(s.Handle, share)
	}

	for _, cs := range stats.Components {
		c.components.Record(cs.Handle, float64(cs.MemoryUsed))
	}

	data, err := c.marshal(c.document(stats))
	if err != nil {
		return errors.WrapIf(err, "failed to serialize world stats")
	}

	c.tick++
	c.publisher.Store(&snapshot.Snapshot{
		Tick: c.tick,
		Time: c.cfg.Clock.Now(),
		Data: data,
	})

	log.WithFields(map[string]interface{}{
		"tick":  c.tick,
		"fps":   fps,
		"frame": frame,
		"bytes": len(data),
	}).Trace("published world stats")
	return nil
}

func (c *Collector) document(stats *worldstats.WorldStats) *Document {
	doc := &Document{
		SystemCount:     stats.SystemCount,
		ComponentCount:  stats.ComponentCount,
		TableCount:      stats.TableCount,
		EntityCount:     stats.EntityCount,
		ThreadCount:     stats.ThreadCount,
		FrameProfiling:  stats.FrameProfiling,
		SystemProfiling: stats.SystemProfiling,
		Memory: MemoryDocument{
			Total:      memoryStat(stats.Memory.Total),
			Components: memoryStat(stats.Memory.Components),
			Entities:   memoryStat(stats.Memory.Entities),
			Systems:    memoryStat(stats.Memory.Systems),
			Families:   memoryStat(stats.Memory.Families),
			Tables:     memoryStat(stats.Memory.Tables),
			Stage:      memoryStat(stats.Memory.Stage),
			World:      memoryStat(stats.Memory.World),
		},
		FPS:    newMeasurementDocument(c.fps),
		Frame:  newMeasurementDocument(c.frame),
		System: newMeasurementDocument(c.system),
	}

	for _, cs := range stats.Components {
		doc.Components = append(doc.Components, ComponentDocument{
			Handle:    cs.Handle,
			ID:        cs.ID,
			Entities:  cs.Entities,
			Tables:    cs.Tables,
			MemUsed1m: c.components.Values(cs.Handle),
		})
	}

	for _, phase := range worldstats.Phases {
		*doc.Systems.Phase(phase) = []SystemDocument{}
	}
	for _, s := range stats.Systems {
		systems := doc.Systems.Phase(s.Phase)
		if systems == nil {
			log.WithFields(map[string]interface{}{
				"id":    s.ID,
				"phase": s.Phase,
			}).Warn("system with unknown phase left out of snapshot")
			continue
		}
		*systems = append(*systems, SystemDocument{
			Handle:          s.Handle,
			ID:              s.ID,
			Enabled:         s.Enabled,
			Active:          s.Active,
			TablesMatched:   s.TablesMatched,
			EntitiesMatched: s.EntitiesMatched,
			Signature:       s.Signature,
			IsHidden:        s.IsHidden,
			Period:          s.Period,
			TimeSpent:       c.timeSpent(s.TimeSpent),
			TimeSpent1m:     c.systems.Values(s.Handle),
		})
	}

	for _, f := range stats.Features {
		doc.Features = append(doc.Features, FeatureDocument{
			ID:             f.ID,
			Entities:       f.Entities,
			SystemCount:    f.SystemCount,
			SystemsEnabled: f.SystemsEnabled,
			IsHidden:       f.IsHidden,
		})
	}

	return doc
}

// timeSpent scales a system's raw time by the current frame cost, in hundredths of a percent.
func (c *Collector) timeSpent(seconds float64) float64 {
	frame := c.frame.Current()
	if frame == 0 {
		return 0
	}
	return seconds / frame * 100 * 100
}
