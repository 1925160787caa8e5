package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentroom/agent"
)

// =============================================================================
// 🔄 配置热重载
// =============================================================================

// ReloadFunc 在新配置生效后调用
type ReloadFunc func(old, new *Config)

// Reloader 监听配置文件，变更后重新走一遍 Loader。
// 新配置校验失败时保留旧配置，只记录日志。
//
// 只有回调里显式应用的部分会在运行时生效，serve 命令只应用 agents 名单。
type Reloader struct {
	loader  *Loader
	watcher *FileWatcher
	logger  *zap.Logger

	mu        sync.RWMutex
	current   *Config
	version   int
	callbacks []ReloadFunc
}

// NewReloader creates a reloader for the loader's config file.
func NewReloader(loader *Loader, initial *Config, logger *zap.Logger, opts ...WatcherOption) (*Reloader, error) {
	if loader == nil || loader.ConfigPath() == "" {
		return nil, errors.New("reloader requires a loader with a config path")
	}
	if initial == nil {
		return nil, errors.New("initial config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := NewFileWatcher(loader.ConfigPath(), append([]WatcherOption{WithWatcherLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Reloader{
		loader:  loader,
		watcher: watcher,
		logger:  logger.With(zap.String("component", "config_reloader")),
		current: initial,
		version: 1,
	}, nil
}

// OnReload registers a callback
func (r *Reloader) OnReload(fn ReloadFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Current returns the active configuration
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Version 每次成功重载加一
func (r *Reloader) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Start begins watching the config file
func (r *Reloader) Start(ctx context.Context) error {
	r.watcher.OnChange(func(evt FileEvent) {
		if evt.Op == FileOpRemove {
			r.logger.Warn("config file removed, keeping current config")
			return
		}
		if err := r.Reload(); err != nil {
			r.logger.Error("config reload failed, keeping current config", zap.Error(err))
		}
	})
	return r.watcher.Start(ctx)
}

// Stop stops watching
func (r *Reloader) Stop() error {
	return r.watcher.Stop()
}

// Reload loads the file again and applies it when valid.
func (r *Reloader) Reload() error {
	next, err := r.loader.Load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.current
	r.current = next
	r.version++
	version := r.version
	callbacks := make([]ReloadFunc, len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	r.logger.Info("config reloaded", zap.Int("version", version))
	var errs []error
	for _, cb := range callbacks {
		if err := safeCall(cb, prev, next); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeCall(cb ReloadFunc, prev, next *Config) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reload callback panicked: %v", rec)
		}
	}()
	cb(prev, next)
	return nil
}

// RosterDiff Agent 名单在两份配置之间的变化
type RosterDiff struct {
	// Upserted 新增或任一字段变化的 Agent
	Upserted []agent.Spec
	// Removed 被移除的别名
	Removed []string
}

// Empty reports whether nothing changed
func (d RosterDiff) Empty() bool {
	return len(d.Upserted) == 0 && len(d.Removed) == 0
}

// DiffAgents compares two rosters by alias, case-insensitively.
func DiffAgents(prev, next []agent.Spec) RosterDiff {
	old := make(map[string]agent.Spec, len(prev))
	for _, s := range prev {
		old[strings.ToLower(s.Alias)] = s
	}

	var diff RosterDiff
	seen := make(map[string]bool, len(next))
	for _, s := range next {
		key := strings.ToLower(s.Alias)
		seen[key] = true
		if o, ok := old[key]; !ok || !reflect.DeepEqual(o, s) {
			diff.Upserted = append(diff.Upserted, s)
		}
	}
	for _, s := range prev {
		if !seen[strings.ToLower(s.Alias)] {
			diff.Removed = append(diff.Removed, s.Alias)
		}
	}
	return diff
}
