package settings

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/hashstructure/v2"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/voluzi/ecsadmin/internal/utils"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

// Settings are the profiling toggles that can be persisted in a file.
// Unset profiling flags leave the current world state untouched.
type Settings struct {
	FrameProfiling  *bool    `yaml:"frame_profiling" toml:"frame_profiling"`
	SystemProfiling *bool    `yaml:"system_profiling" toml:"system_profiling"`
	DisabledSystems []string `yaml:"disabled_systems" toml:"disabled_systems"`
}

// Watcher applies a settings file to a world and re-applies it when the file changes.
type Watcher struct {
	path       string
	controller worldstats.Controller
	applied    Settings
	hash       uint64
}

// NewWatcher loads path and applies it to controller.
func NewWatcher(path string, controller worldstats.Controller) (*Watcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.WrapIf(err, "settings file does not exist")
	}
	w := &Watcher{
		path:       path,
		controller: controller,
	}
	if _, err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Load decodes a settings file. Files ending in .toml are read as TOML, anything else as YAML.
func Load(path string) (*Settings, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s := &Settings{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err = toml.Decode(string(body), s)
	} else {
		err = yaml.Unmarshal(body, s)
	}
	if err != nil {
		return nil, errors.WrapIff(err, "failed to decode %s", path)
	}
	return s, nil
}

// Reload reads the file and applies it if its content changed since the last
// application. It reports whether settings were applied.
func (w *Watcher) Reload() (bool, error) {
	s, err := Load(w.path)
	if err != nil {
		return false, err
	}

	hash, err := hashstructure.Hash(s, hashstructure.FormatV2, nil)
	if err != nil {
		return false, errors.WrapIf(err, "failed to hash settings")
	}
	if w.hash != 0 && hash == w.hash {
		log.Debug("settings unchanged")
		return false, nil
	}

	w.apply(s)
	w.hash = hash
	return true, nil
}

func (w *Watcher) apply(s *Settings) {
	if s.FrameProfiling != nil {
		w.controller.SetFrameProfiling(*s.FrameProfiling)
	}
	if s.SystemProfiling != nil {
		w.controller.SetSystemProfiling(*s.SystemProfiling)
	}

	for _, id := range utils.SliceDifference(w.applied.DisabledSystems, s.DisabledSystems) {
		if err := w.controller.EnableSystem(id, true); err != nil {
			log.WithField("system", id).Warnf("could not re-enable system: %v", err)
		}
	}
	for _, id := range s.DisabledSystems {
		if err := w.controller.EnableSystem(id, false); err != nil {
			log.WithField("system", id).Warnf("could not disable system: %v", err)
		}
	}

	w.applied = *s
	log.WithField("file", w.path).Info("applied settings")
}

// Watch re-applies the settings file whenever its directory changes, until ctx is done.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return errors.New("could not retrieve event")
			}
			if _, err := w.Reload(); err != nil {
				// The file may be mid-write; the next event retries.
				log.Errorf("error reloading settings: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("could not retrieve error")
			}
			return err
		}
	}
}
