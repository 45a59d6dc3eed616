package adminserver

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/gorilla/mux"
	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/ecsadmin/pkg/snapshot"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

const SnapshotTickHeader = "X-Snapshot-Tick"

func (s *AdminServer) registerRoutes() {
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/world", s.getWorld).Methods(http.MethodGet)
	s.router.HandleFunc("/world", s.postWorld).Methods(http.MethodPost)
	s.router.HandleFunc("/world/stream", s.streamWorld).Methods(http.MethodGet)
	s.router.HandleFunc("/systems/{id}", s.postSystem).Methods(http.MethodPost)
	s.router.HandleFunc("/metrics", s.metrics).Methods(http.MethodGet)

	if s.cfg.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.StaticDir))).Methods(http.MethodGet)
	}
}

func (s *AdminServer) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *AdminServer) getWorld(w http.ResponseWriter, r *http.Request) {
	snap, err := s.publisher.Read()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Errorf("error reading snapshot: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(SnapshotTickHeader, strconv.FormatUint(snap.Tick, 10))
	w.Header().Set("Last-Modified", snap.Time.UTC().Format(http.TimeFormat))
	w.Header().Add("Vary", "Accept-Encoding")

	body := snap.Data
	if acceptsGzip(r) && uint64(len(body)) >= s.cfg.GzipMinSize.Bytes() {
		compressed, err := s.compressed(snap)
		if err != nil {
			log.Warnf("error compressing snapshot, sending it uncompressed: %v", err)
		} else {
			w.Header().Set("Content-Encoding", "gzip")
			body = compressed
		}
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// compressed returns the gzipped snapshot body, compressing it at most once per tick.
func (s *AdminServer) compressed(snap *snapshot.Snapshot) ([]byte, error) {
	if item := s.gzipCache.Get(snap.Tick); item != nil {
		return item.Value(), nil
	}

	var buf bytes.Buffer
	zw, err := pgzip.NewWriterLevel(&buf, pgzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(snap.Data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	s.gzipCache.Set(snap.Tick, buf.Bytes(), 2*s.collector.Interval())
	return buf.Bytes(), nil
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.SplitN(enc, ";", 2)[0]) == "gzip" {
			return true
		}
	}
	return false
}

func (s *AdminServer) postWorld(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("frame_profiling") && !query.Has("system_profiling") {
		http.Error(w, "expected frame_profiling or system_profiling", http.StatusBadRequest)
		return
	}

	// Parse everything first so a bad value leaves the world untouched.
	var frame, system *bool
	for name, target := range map[string]**bool{"frame_profiling": &frame, "system_profiling": &system} {
		if !query.Has(name) {
			continue
		}
		v, err := strconv.ParseBool(query.Get(name))
		if err != nil {
			http.Error(w, "invalid value for "+name, http.StatusBadRequest)
			return
		}
		*target = &v
	}

	if frame != nil {
		s.world.SetFrameProfiling(*frame)
	}
	if system != nil {
		s.world.SetSystemProfiling(*system)
	}

	log.WithFields(map[string]interface{}{
		"frame_profiling":  query.Get("frame_profiling"),
		"system_profiling": query.Get("system_profiling"),
	}).Info("updated profiling settings")
	w.WriteHeader(http.StatusOK)
}

func (s *AdminServer) postSystem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		http.Error(w, "invalid value for enabled", http.StatusBadRequest)
		return
	}

	if err := s.world.EnableSystem(id, enabled); err != nil {
		if errors.Is(err, worldstats.ErrSystemNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("error updating system %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.WithFields(map[string]interface{}{
		"system":  id,
		"enabled": enabled,
	}).Info("updated system")
	w.WriteHeader(http.StatusOK)
}
