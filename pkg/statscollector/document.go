package statscollector

import (
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

// Document is the serialized form of a world snapshot as served to dashboards.
type Document struct {
	SystemCount     uint32 `json:"system_count"`
	ComponentCount  uint32 `json:"component_count"`
	TableCount      uint32 `json:"table_count"`
	EntityCount     uint32 `json:"entity_count"`
	ThreadCount     uint32 `json:"thread_count"`
	FrameProfiling  bool   `json:"frame_profiling"`
	SystemProfiling bool   `json:"system_profiling"`

	Memory     MemoryDocument      `json:"memory"`
	Components []ComponentDocument `json:"components,omitempty"`
	Systems    SystemsDocument     `json:"systems"`
	Features   []FeatureDocument   `json:"features,omitempty"`

	FPS    MeasurementDocument `json:"fps"`
	Frame  MeasurementDocument `json:"frame"`
	System MeasurementDocument `json:"system"`
}

type MemoryStat struct {
	Allocd uint64 `json:"allocd"`
	Used   uint64 `json:"used"`
}

type MemoryDocument struct {
	Total      MemoryStat `json:"total"`
	Components MemoryStat `json:"components"`
	Entities   MemoryStat `json:"entities"`
	Systems    MemoryStat `json:"systems"`
	Families   MemoryStat `json:"families"`
	Tables     MemoryStat `json:"tables"`
	Stage      MemoryStat `json:"stage"`
	World      MemoryStat `json:"world"`
}

type ComponentDocument struct {
	Handle    uint64    `json:"handle"`
	ID        string    `json:"id"`
	Entities  uint32    `json:"entities"`
	Tables    uint32    `json:"tables"`
	MemUsed1m []float64 `json:"mem_used_1m,omitempty"`
}

type SystemDocument struct {
	Handle          uint64    `json:"handle"`
	ID              string    `json:"id"`
	Enabled         bool      `json:"enabled"`
	Active          bool      `json:"active"`
	TablesMatched   uint32    `json:"tables_matched"`
	EntitiesMatched uint32    `json:"entities_matched"`
	Signature       string    `json:"signature"`
	IsHidden        bool      `json:"is_hidden"`
	Period          float64   `json:"period"`
	TimeSpent       float64   `json:"time_spent"`
	TimeSpent1m     []float64 `json:"time_spent_1m,omitempty"`
}

// SystemsDocument groups systems by phase. Every phase is always present.
type SystemsDocument struct {
	OnLoad     []SystemDocument `json:"on_load"`
	PostLoad   []SystemDocument `json:"post_load"`
	PreUpdate  []SystemDocument `json:"pre_update"`
	OnUpdate   []SystemDocument `json:"on_update"`
	OnValidate []SystemDocument `json:"on_validate"`
	PostUpdate []SystemDocument `json:"post_update"`
	PreStore   []SystemDocument `json:"pre_store"`
	OnStore    []SystemDocument `json:"on_store"`
	Manual     []SystemDocument `json:"manual"`
	OnAdd      []SystemDocument `json:"on_add"`
	OnSet      []SystemDocument `json:"on_set"`
	OnRemove   []SystemDocument `json:"on_remove"`
}

// Phase returns a pointer to the slice holding the given phase's systems.
func (s *SystemsDocument) Phase(phase worldstats.Phase) *[]SystemDocument {
	switch phase {
	case worldstats.OnLoad:
		return &s.OnLoad
	case worldstats.PostLoad:
		return &s.PostLoad
	case worldstats.PreUpdate:
		return &s.PreUpdate
	case worldstats.OnUpdate:
		return &s.OnUpdate
	case worldstats.OnValidate:
		return &s.OnValidate
	case worldstats.PostUpdate:
		return &s.PostUpdate
	case worldstats.PreStore:
		return &s.PreStore
	case worldstats.OnStore:
		return &s.OnStore
	case worldstats.Manual:
		return &s.Manual
	case worldstats.OnAdd:
		return &s.OnAdd
	case worldstats.OnSet:
		return &s.OnSet
	case worldstats.OnRemove:
		return &s.OnRemove
	}
	return nil
}

// All returns every system in phase order.
func (s *SystemsDocument) All() []SystemDocument {
	var all []SystemDocument
	for _, phase := range worldstats.Phases {
		all = append(all, *s.Phase(phase)...)
	}
	return all
}

type FeatureDocument struct {
	ID             string `json:"id"`
	Entities       string `json:"entities"`
	SystemCount    uint32 `json:"system_count"`
	SystemsEnabled uint32 `json:"systems_enabled"`
	IsHidden       bool   `json:"is_hidden"`
}

type MeasurementDocument struct {
	Current float64   `json:"current"`
	Data1m  []float64 `json:"data_1m"`
	Data1h  []float64 `json:"data_1h"`
	Min1h   []float64 `json:"min_1h"`
	Max1h   []float64 `json:"max_1h"`
}

func newMeasurementDocument(m *Measurement) MeasurementDocument {
	return MeasurementDocument{
		Current: m.Current(),
		Data1m:  m.Short(),
		Data1h:  m.Mean(),
		Min1h:   m.Min(),
		Max1h:   m.Max(),
	}
}

func memoryStat(m worldstats.MemoryStat) MemoryStat {
	return MemoryStat{Allocd: m.Allocd, Used: m.Used}
}
