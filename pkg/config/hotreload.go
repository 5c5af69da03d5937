package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/simulation"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Updater applies a simulation change; *simulation.Engine satisfies it
type Updater interface {
	UpdateConfig(ctx context.Context, u simulation.ConfigUpdate) (simulation.Config, error)
}

// ReloadEvent describes one reload attempt
type ReloadEvent struct {
	Timestamp  time.Time          `json:"timestamp"`
	ConfigPath string             `json:"config_path"`
	Success    bool               `json:"success"`
	Applied    *simulation.Config `json:"applied,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// HotReloadManager watches a YAML file of simulation settings and applies
// every change to the running engine
type HotReloadManager struct {
	configPath   string
	updater      Updater
	logger       *logrus.Logger
	watcher      *fsnotify.Watcher
	debounceTime time.Duration

	mutex      sync.Mutex
	running    bool
	ctx        context.Context
	cancel     context.CancelFunc
	reloadChan chan struct{}
	wg         sync.WaitGroup
	lastEvent  *ReloadEvent
	onReload   func(ReloadEvent)
}

// NewHotReloadManager creates a manager for configPath
func NewHotReloadManager(configPath string, updater Updater, logger *logrus.Logger) (*HotReloadManager, error) {
	if configPath == "" {
		return nil, errors.NewInvalidInput("hot reload requires a config file path")
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve config path")
	}
	return &HotReloadManager{
		configPath:   abs,
		updater:      updater,
		logger:       logger,
		debounceTime: DefaultDebounce,
		reloadChan:   make(chan struct{}, 1),
	}, nil
}

// SetDebounce overrides DefaultDebounce; call before Start
func (h *HotReloadManager) SetDebounce(d time.Duration) {
	h.debounceTime = d
}

// OnReload registers a hook called after every reload attempt
func (h *HotReloadManager) OnReload(fn func(ReloadEvent)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.onReload = fn
}

// Start applies the file once if present and begins watching. The parent
// directory is watched so editors that replace the file are seen.
func (h *HotReloadManager) Start() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	if err := watcher.Add(filepath.Dir(h.configPath)); err != nil {
		watcher.Close()
		return errors.Wrap(err, "failed to watch config directory", map[string]interface{}{"path": h.configPath})
	}

	h.watcher = watcher
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.running = true

	if _, err := os.Stat(h.configPath); err == nil {
		h.trigger()
	}

	h.wg.Add(2)
	go h.watchFiles()
	go h.handleReloads()

	h.logger.WithField("path", h.configPath).Info("Simulation config hot reload started")
	return nil
}

// Stop ends watching and waits for the goroutines
func (h *HotReloadManager) Stop() error {
	h.mutex.Lock()
	if !h.running {
		h.mutex.Unlock()
		return nil
	}
	h.running = false
	h.cancel()
	err := h.watcher.Close()
	h.mutex.Unlock()

	h.wg.Wait()
	h.logger.Info("Simulation config hot reload stopped")
	return err
}

// TriggerReload reads and applies the file immediately
func (h *HotReloadManager) TriggerReload(ctx context.Context) ReloadEvent {
	return h.performReload(ctx)
}

// LastEvent returns the most recent reload attempt, if any
func (h *HotReloadManager) LastEvent() *ReloadEvent {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.lastEvent == nil {
		return nil
	}
	ev := *h.lastEvent
	return &ev
}

func (h *HotReloadManager) trigger() {
	select {
	case h.reloadChan <- struct{}{}:
	default:
	}
}

func (h *HotReloadManager) watchFiles() {
	defer h.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).Error("File watcher panic recovered")
		}
	}()

	for {
		select {
		case <-h.ctx.Done():
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				h.logger.WithField("event", event.Op.String()).Debug("Configuration reload triggered by file change")
				h.trigger()
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.WithError(err).Error("File watcher error")
		}
	}
}

func (h *HotReloadManager) handleReloads() {
	defer h.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).Error("Reload handler panic recovered")
		}
	}()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.reloadChan:
		}

		select {
		case <-h.ctx.Done():
			return
		case <-time.After(h.debounceTime):
		}
		// writes that landed during the debounce are covered by this reload
		select {
		case <-h.reloadChan:
		default:
		}

		ev := h.performReload(h.ctx)
		if ev.Success {
			h.logger.WithField("path", h.configPath).Info("Simulation configuration reloaded")
		} else {
			h.logger.WithField("error", ev.Error).Error("Simulation configuration reload failed")
		}
	}
}

func (h *HotReloadManager) performReload(ctx context.Context) ReloadEvent {
	ev := ReloadEvent{Timestamp: time.Now(), ConfigPath: h.configPath}

	update, err := ReadSimulationFile(h.configPath)
	if err == nil {
		var applied simulation.Config
		if !update.Empty() {
			applied, err = h.updater.UpdateConfig(ctx, update)
		} else {
			err = errors.NewInvalidInput("config file sets no simulation fields")
		}
		if err == nil {
			ev.Applied = &applied
		}
	}
	if err != nil {
		ev.Error = err.Error()
	} else {
		ev.Success = true
	}

	h.mutex.Lock()
	h.lastEvent = &ev
	hook := h.onReload
	h.mutex.Unlock()
	if hook != nil {
		hook(ev)
	}
	return ev
}

// ReadSimulationFile decodes a YAML document of simulation settings, for
// example:
//
//	num_calls: 8
//	message_interval: 2.5
func ReadSimulationFile(path string) (simulation.ConfigUpdate, error) {
	var update simulation.ConfigUpdate
	data, err := os.ReadFile(path)
	if err != nil {
		return update, errors.Wrap(err, "failed to read simulation config file", map[string]interface{}{"path": path})
	}
	if err := yaml.Unmarshal(data, &update); err != nil {
		return update, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("invalid simulation config file: %v", err))
	}
	return update, nil
}
