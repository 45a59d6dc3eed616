package worldstats

// Phase is the scheduling phase a system runs in.
type Phase string

const (
	OnLoad     Phase = "on_load"
	PostLoad   Phase = "post_load"
	PreUpdate  Phase = "pre_update"
	OnUpdate   Phase = "on_update"
	OnValidate Phase = "on_validate"
	PostUpdate Phase = "post_update"
	PreStore   Phase = "pre_store"
	OnStore    Phase = "on_store"
	Manual     Phase = "manual"
	OnAdd      Phase = "on_add"
	OnSet      Phase = "on_set"
	OnRemove   Phase = "on_remove"
)

// Phases lists every phase in execution order.
var Phases = []Phase{
	OnLoad, PostLoad, PreUpdate, OnUpdate, OnValidate, PostUpdate,
	PreStore, OnStore, Manual, OnAdd, OnSet, OnRemove,
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	for _, phase := range Phases {
		if p == phase {
			return true
		}
	}
	return false
}

// Periodic reports whether systems of this phase run on every frame.
func (p Phase) Periodic() bool {
	switch p {
	case Manual, OnAdd, OnSet, OnRemove:
		return false
	}
	return p.Valid()
}

// Provider supplies raw counters once per collector tick.
type Provider interface {
	Stats() (*WorldStats, error)
}

// Controller exposes the profiling and system toggles of a world.
type Controller interface {
	SetFrameProfiling(enabled bool)
	SetSystemProfiling(enabled bool)
	EnableSystem(id string, enabled bool) error
}

// MemoryStat is a pair of allocated and used byte counts.
type MemoryStat struct {
	Allocd uint64
	Used   uint64
}

// MemoryStats is the memory breakdown of a world by category.
type MemoryStats struct {
	Total      MemoryStat
	Components MemoryStat
	Entities   MemoryStat
	Systems    MemoryStat
	Families   MemoryStat
	Tables     MemoryStat
	Stage      MemoryStat
	World      MemoryStat
}

// SystemStats holds the counters of one system.
type SystemStats struct {
	Handle          uint64
	ID              string
	Phase           Phase
	Enabled         bool
	Active          bool
	TablesMatched   uint32
	EntitiesMatched uint32
	Signature       string
	IsHidden        bool
	Period          float64

	// TimeSpent is the time in seconds the system ran since the previous Stats call.
	TimeSpent float64
}

// ComponentStats holds the counters of one component.
type ComponentStats struct {
	Handle     uint64
	ID         string
	Entities   uint32
	Tables     uint32
	MemoryUsed uint64
	Allocd     uint64
}

// FeatureStats describes a named group of systems.
type FeatureStats struct {
	ID             string
	Entities       string
	SystemCount    uint32
	SystemsEnabled uint32
	IsHidden       bool
}

// WorldStats is the raw counter set handed to the collector. Interval counters
// (TickCount, FrameTime, SystemTime and SystemStats.TimeSpent) cover the time
// since the previous Stats call.
type WorldStats struct {
	SystemCount    uint32
	ComponentCount uint32
	TableCount     uint32
	EntityCount    uint32
	ThreadCount    uint32

	FrameProfiling  bool
	SystemProfiling bool

	TickCount  uint64
	FrameTime  float64
	SystemTime float64

	Memory     MemoryStats
	Systems    []SystemStats
	Components []ComponentStats
	Features   []FeatureStats
}

// SystemsInPhase returns the systems of the given phase, in registration order.
func (s *WorldStats) SystemsInPhase(phase Phase) []SystemStats {
	var out []SystemStats
	for _, system := range s.Systems {
		if system.Phase == phase {
			out = append(out, system)
		}
	}
	return out
}
