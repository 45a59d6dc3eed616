package adminserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"emperror.dev/errors"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jellydator/ttlcache/v3"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/ecsadmin/internal/settings"
	"github.com/voluzi/ecsadmin/pkg/snapshot"
	"github.com/voluzi/ecsadmin/pkg/statscollector"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

// World is what the admin server samples and controls.
type World interface {
	worldstats.Provider
	worldstats.Controller
}

// AdminServer periodically collects world stats and serves them over HTTP.
type AdminServer struct {
	server    *http.Server
	router    *mux.Router
	cfg       *Options
	world     World
	publisher *snapshot.Publisher
	collector *statscollector.Collector
	settings  *settings.Watcher
	gzipCache *ttlcache.Cache[uint64, []byte]
	upgrader  websocket.Upgrader
	started   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

func New(world World, opts ...Option) (*AdminServer, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	publisher := snapshot.NewPublisher()
	collector := statscollector.NewCollector(publisher, options.Collector...)

	s := &AdminServer{
		cfg:       options,
		router:    mux.NewRouter(),
		world:     world,
		publisher: publisher,
		collector: collector,
		gzipCache: ttlcache.New[uint64, []byte](
			ttlcache.WithTTL[uint64, []byte](2*collector.Interval()),
			ttlcache.WithCapacity[uint64, []byte](4),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", options.Host, options.Port),
		Handler: s.router,
	}

	if options.SettingsFile != "" {
		watcher, err := settings.NewWatcher(options.SettingsFile, world)
		if err != nil {
			return nil, err
		}
		s.settings = watcher
	}

	s.registerRoutes()
	return s, nil
}

// Handler returns the HTTP handler serving all admin endpoints.
func (s *AdminServer) Handler() http.Handler {
	return s.router
}

// Publisher returns the publisher holding the latest snapshot.
func (s *AdminServer) Publisher() *snapshot.Publisher {
	return s.publisher
}

// Start runs the collector and blocks serving HTTP until Stop is called.
func (s *AdminServer) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("server already started")
	}

	go s.collector.Run(s.ctx, s.world)
	go s.gzipCache.Start()

	if s.settings != nil {
		go func() {
			if err := s.settings.Watch(s.ctx); err != nil {
				log.Errorf("error watching settings file: %v", err)
			}
		}()
	}

	log.Infof("admin server listening on %s", s.server.Addr)
	err := s.server.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *AdminServer) Stop() error {
	log.Info("stopping admin server")

	if !s.started.CompareAndSwap(true, false) {
		return fmt.Errorf("server was not started")
	}

	s.cancel()
	s.gzipCache.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
