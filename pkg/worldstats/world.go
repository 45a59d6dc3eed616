package worldstats

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
)

const (
	ErrSystemNotFound    = errors.Sentinel("system not found")
	ErrComponentNotFound = errors.Sentinel("component not found")
	ErrDuplicateID       = errors.Sentinel("id already registered")
	ErrInvalidPhase      = errors.Sentinel("invalid phase")
)

const (
	entityRecordSize = 16
	tableRecordSize  = 64
)

type system struct {
	handle    uint64
	id        string
	phase     Phase
	action    func()
	enabled   bool
	signature string
	hidden    bool
	period    float64

	tablesMatched   uint32
	entitiesMatched uint32

	timeSpent float64
	lastRun   time.Time
}

type component struct {
	handle   uint64
	id       string
	size     uint64
	entities uint32
	tables   uint32
}

type feature struct {
	id      string
	systems []string
	hidden  bool
}

// World is an in-process registry of systems and components that measures
// frame and system execution time and reports it through Stats.
type World struct {
	mu sync.Mutex

	clock      clockz.Clock
	nextHandle uint64

	systems    []*system
	systemByID map[string]*system
	components []*component
	features   []*feature

	entityCount uint32
	tableCount  uint32

	tickCount  uint64
	frameTime  float64
	systemTime float64

	frameProfiling  atomic.Bool
	systemProfiling atomic.Bool

	proc *process.Process
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithClock sets the clock used for time measurements.
func WithClock(clock clockz.Clock) WorldOption {
	return func(w *World) {
		w.clock = clock
	}
}

// NewWorld creates an empty world with frame profiling enabled.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		clock:      clockz.RealClock,
		systemByID: make(map[string]*system),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.frameProfiling.Store(true)

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warnf("process stats unavailable: %v", err)
	} else {
		w.proc = proc
	}
	return w
}

// SystemOption configures a system at registration time.
type SystemOption func(*system)

// WithSignature sets the component signature shown for the system.
func WithSignature(signature string) SystemOption {
	return func(s *system) {
		s.signature = signature
	}
}

// WithPeriod makes the system run at most once every period seconds.
func WithPeriod(period float64) SystemOption {
	return func(s *system) {
		s.period = period
	}
}

// Hidden marks the system as hidden from dashboards.
func Hidden() SystemOption {
	return func(s *system) {
		s.hidden = true
	}
}

// RegisterSystem adds a system to the world and returns its handle.
func (w *World) RegisterSystem(id string, phase Phase, action func(), opts ...SystemOption) (uint64, error) {
	if !phase.Valid() {
		return 0, errors.WithDetails(ErrInvalidPhase, "phase", phase)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.systemByID[id]; ok {
		return 0, errors.WithDetails(ErrDuplicateID, "id", id)
	}

	w.nextHandle++
	s := &system{
		handle:  w.nextHandle,
		id:      id,
		phase:   phase,
		action:  action,
		enabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	w.systems = append(w.systems, s)
	w.systemByID[id] = s

	log.WithFields(map[string]interface{}{
		"id":     id,
		"phase":  phase,
		"handle": s.handle,
	}).Debug("registered system")
	return s.handle, nil
}

// RegisterComponent adds a component of the given element size and returns its handle.
func (w *World) RegisterComponent(id string, size uint64) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextHandle++
	w.components = append(w.components, &component{
		handle: w.nextHandle,
		id:     id,
		size:   size,
	})
	return w.nextHandle
}

// RegisterFeature groups already registered systems under a name.
func (w *World) RegisterFeature(id string, hidden bool, systems ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, name := range systems {
		if _, ok := w.systemByID[name]; !ok {
			return errors.WithDetails(ErrSystemNotFound, "id", name)
		}
	}
	w.features = append(w.features, &feature{id: id, systems: systems, hidden: hidden})
	return nil
}

// SetComponentCount updates the number of entities and tables holding a component.
func (w *World) SetComponentCount(handle uint64, entities, tables uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, c := range w.components {
		if c.handle == handle {
			c.entities = entities
			c.tables = tables
			return nil
		}
	}
	return errors.WithDetails(ErrComponentNotFound, "handle", handle)
}

// SetSystemMatches updates the number of tables and entities a system matches.
func (w *World) SetSystemMatches(id string, tables, entities uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.systemByID[id]
	if !ok {
		return errors.WithDetails(ErrSystemNotFound, "id", id)
	}
	s.tablesMatched = tables
	s.entitiesMatched = entities
	return nil
}

// SetEntityCount sets the total number of live entities.
func (w *World) SetEntityCount(n uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entityCount = n
}

// SetTableCount sets the total number of tables.
func (w *World) SetTableCount(n uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tableCount = n
}

// SetFrameProfiling turns frame time measurement on or off.
func (w *World) SetFrameProfiling(enabled bool) {
	if w.frameProfiling.Swap(enabled) != enabled {
		log.WithField("enabled", enabled).Info("frame profiling changed")
	}
}

// SetSystemProfiling turns per-system time measurement on or off.
func (w *World) SetSystemProfiling(enabled bool) {
	if w.systemProfiling.Swap(enabled) != enabled {
		log.WithField("enabled", enabled).Info("system profiling changed")
	}
}

// EnableSystem enables or disables the system with the given id.
func (w *World) EnableSystem(id string, enabled bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.systemByID[id]
	if !ok {
		return errors.WithDetails(ErrSystemNotFound, "id", id)
	}
	if s.enabled != enabled {
		log.WithFields(map[string]interface{}{
			"id":      id,
			"enabled": enabled,
		}).Info("system state changed")
	}
	s.enabled = enabled
	return nil
}

// Progress runs one frame: every enabled system of the periodic phases, in phase order.
func (w *World) Progress() {
	start := w.clock.Now()

	for _, phase := range Phases {
		if !phase.Periodic() {
			continue
		}
		for _, s := range w.runnable(phase, start) {
			w.run(s)
		}
	}

	w.mu.Lock()
	w.tickCount++
	if w.frameProfiling.Load() {
		w.frameTime += w.clock.Now().Sub(start).Seconds()
	}
	w.mu.Unlock()
}

// Run executes a single system by id regardless of its phase.
func (w *World) Run(id string) error {
	w.mu.Lock()
	s, ok := w.systemByID[id]
	w.mu.Unlock()
	if !ok {
		return errors.WithDetails(ErrSystemNotFound, "id", id)
	}
	w.run(s)
	return nil
}

func (w *World) runnable(phase Phase, now time.Time) []*system {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []*system
	for _, s := range w.systems {
		if s.phase != phase || !s.enabled {
			continue
		}
		if s.period > 0 && !s.lastRun.IsZero() && now.Sub(s.lastRun).Seconds() < s.period {
			continue
		}
		s.lastRun = now
		out = append(out, s)
	}
	return out
}

func (w *World) run(s *system) {
	start := w.clock.Now()
	if s.action != nil {
		s.action()
	}
	if !w.systemProfiling.Load() {
		return
	}
	elapsed := w.clock.Now().Sub(start).Seconds()

	w.mu.Lock()
	s.timeSpent += elapsed
	w.systemTime += elapsed
	w.mu.Unlock()
}

// Stats returns the current counters and resets the interval counters.
func (w *World) Stats() (*WorldStats, error) {
	stats := &WorldStats{
		FrameProfiling:  w.frameProfiling.Load(),
		SystemProfiling: w.systemProfiling.Load(),
	}

	if w.proc != nil {
		if threads, err := w.proc.NumThreads(); err == nil {
			stats.ThreadCount = uint32(threads)
		}
		if mem, err := w.proc.MemoryInfo(); err == nil {
			stats.Memory.Total = MemoryStat{Allocd: mem.VMS, Used: mem.RSS}
		} else {
			log.Debugf("failed to read process memory: %v", err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	stats.SystemCount = uint32(len(w.systems))
	stats.ComponentCount = uint32(len(w.components))
	stats.EntityCount = w.entityCount
	stats.TableCount = w.tableCount
	stats.TickCount = w.tickCount
	stats.FrameTime = w.frameTime
	stats.SystemTime = w.systemTime

	for _, s := range w.systems {
		stats.Systems = append(stats.Systems, SystemStats{
			Handle:          s.handle,
			ID:              s.id,
			Phase:           s.phase,
			Enabled:         s.enabled,
			Active:          s.enabled && (s.signature == "" || s.entitiesMatched > 0),
			TablesMatched:   s.tablesMatched,
			EntitiesMatched: s.entitiesMatched,
			Signature:       s.signature,
			IsHidden:        s.hidden,
			Period:          s.period,
			TimeSpent:       s.timeSpent,
		})
		s.timeSpent = 0
	}

	for _, c := range w.components {
		used := uint64(c.entities) * c.size
		allocd := nextPowerOfTwo(uint64(c.entities)) * c.size
		stats.Components = append(stats.Components, ComponentStats{
			Handle:     c.handle,
			ID:         c.id,
			Entities:   c.entities,
			Tables:     c.tables,
			MemoryUsed: used,
			Allocd:     allocd,
		})
		stats.Memory.Components.Used += used
		stats.Memory.Components.Allocd += allocd
	}

	for _, f := range w.features {
		enabled := uint32(0)
		for _, id := range f.systems {
			if w.systemByID[id].enabled {
				enabled++
			}
		}
		stats.Features = append(stats.Features, FeatureStats{
			ID:             f.id,
			Entities:       strings.Join(f.systems, ","),
			SystemCount:    uint32(len(f.systems)),
			SystemsEnabled: enabled,
			IsHidden:       f.hidden,
		})
	}

	systemSize := uint64(unsafe.Sizeof(system{}))
	stats.Memory.Systems = MemoryStat{
		Allocd: uint64(cap(w.systems)) * systemSize,
		Used:   uint64(len(w.systems)) * systemSize,
	}
	stats.Memory.Entities = MemoryStat{
		Allocd: nextPowerOfTwo(uint64(w.entityCount)) * entityRecordSize,
		Used:   uint64(w.entityCount) * entityRecordSize,
	}
	stats.Memory.Tables = MemoryStat{
		Allocd: nextPowerOfTwo(uint64(w.tableCount)) * tableRecordSize,
		Used:   uint64(w.tableCount) * tableRecordSize,
	}
	worldSize := uint64(unsafe.Sizeof(World{}))
	stats.Memory.World = MemoryStat{Allocd: worldSize, Used: worldSize}

	w.tickCount = 0
	w.frameTime = 0
	w.systemTime = 0

	return stats, nil
}

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}
