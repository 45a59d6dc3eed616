package adminserver

import (
	"net/http"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"

	"github.com/voluzi/ecsadmin/pkg/snapshot"
	"github.com/voluzi/ecsadmin/pkg/statscollector"
)

const metricsNamespace = "ecs"

func (s *AdminServer) metrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.publisher.Read()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	families, err := metricFamilies(snap)
	if err != nil {
		log.Errorf("error building metrics: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	format := expfmt.Negotiate(r.Header)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			log.Errorf("error encoding metric family %s: %v", mf.GetName(), err)
			return
		}
	}
}

// metricFamilies converts the current values of a snapshot into gauges.
func metricFamilies(snap *snapshot.Snapshot) ([]*dto.MetricFamily, error) {
	doc := &statscollector.Document{}
	if err := json.Unmarshal(snap.Data, doc); err != nil {
		return nil, errors.WrapIf(err, "failed to decode snapshot")
	}

	families := []*dto.MetricFamily{
		gaugeFamily("fps", "Frames per second over the last interval.", gauge(doc.FPS.Current)),
		gaugeFamily("frame_time_percent", "Share of the interval spent in frames.", gauge(doc.Frame.Current)),
		gaugeFamily("system_time_percent", "Share of the interval spent in systems.", gauge(doc.System.Current)),
		gaugeFamily("entities", "Number of entities.", gauge(float64(doc.EntityCount))),
		gaugeFamily("components", "Number of components.", gauge(float64(doc.ComponentCount))),
		gaugeFamily("systems", "Number of systems.", gauge(float64(doc.SystemCount))),
		gaugeFamily("tables", "Number of tables.", gauge(float64(doc.TableCount))),
		gaugeFamily("threads", "Number of threads.", gauge(float64(doc.ThreadCount))),
	}

	categories := map[string]statscollector.MemoryStat{
		"total":      doc.Memory.Total,
		"components": doc.Memory.Components,
		"entities":   doc.Memory.Entities,
		"systems":    doc.Memory.Systems,
		"families":   doc.Memory.Families,
		"tables":     doc.Memory.Tables,
		"stage":      doc.Memory.Stage,
		"world":      doc.Memory.World,
	}
	var allocd, used []*dto.Metric
	for _, name := range []string{"total", "components", "entities", "systems", "families", "tables", "stage", "world"} {
		allocd = append(allocd, gauge(float64(categories[name].Allocd), "category", name))
		used = append(used, gauge(float64(categories[name].Used), "category", name))
	}
	families = append(families,
		gaugeFamily("memory_allocated_bytes", "Allocated memory by category.", allocd...),
		gaugeFamily("memory_used_bytes", "Used memory by category.", used...),
	)

	var share, enabled []*dto.Metric
	for _, sys := range doc.Systems.All() {
		current := 0.0
		if n := len(sys.TimeSpent1m); n > 0 {
			current = sys.TimeSpent1m[n-1]
		}
		share = append(share, gauge(current, "system", sys.ID))
		enabled = append(enabled, gauge(boolValue(sys.Enabled), "system", sys.ID))
	}
	if len(share) > 0 {
		families = append(families,
			gaugeFamily("system_time_share_percent", "Share of system time spent in each system.", share...),
			gaugeFamily("system_enabled", "Whether a system is enabled.", enabled...),
		)
	}

	return families, nil
}

func gaugeFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(metricsNamespace + "_" + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

// gauge builds a gauge sample; labels are given as name, value pairs.
func gauge(value float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(value)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
