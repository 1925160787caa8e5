// 配置文件变更监听器实现。
//
// 以轮询 mtime/size 的方式检测变更，并在防抖窗口结束后触发回调。
package config

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 文件监听器类型定义 ---

// FileOp represents file operation types
type FileOp int

const (
	FileOpCreate FileOp = iota
	FileOpWrite
	FileOpRemove
)

// String returns the string representation of FileOp
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "CREATE"
	case FileOpWrite:
		return "WRITE"
	case FileOpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file change event
type FileEvent struct {
	Path      string    `json:"path"`
	Op        FileOp    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

type fileState struct {
	modTime time.Time
	size    int64
}

// FileWatcher 监听单个配置文件
type FileWatcher struct {
	path          string
	pollInterval  time.Duration
	debounceDelay time.Duration
	logger        *zap.Logger

	mu        sync.Mutex
	callbacks []func(FileEvent)
	last      *fileState
	cancel    context.CancelFunc
	done      chan struct{}
}

// --- 文件监听器选项 ---

// WatcherOption configures the FileWatcher
type WatcherOption func(*FileWatcher)

// WithDebounceDelay sets the debounce delay for file events
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *FileWatcher) { w.debounceDelay = d }
}

// WithPollInterval sets how often the file is stat'ed
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) { w.pollInterval = d }
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) { w.logger = logger }
}

// --- 文件监听器实现 ---

// NewFileWatcher creates a watcher for path. 文件可以暂时不存在，创建后会收到 CREATE。
func NewFileWatcher(path string, opts ...WatcherOption) (*FileWatcher, error) {
	if path == "" {
		return nil, errors.New("watch path is required")
	}
	w := &FileWatcher{
		path:          path,
		pollInterval:  time.Second,
		debounceDelay: 200 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"), zap.String("path", path))
	return w, nil
}

// OnChange registers a callback for file change events
func (w *FileWatcher) OnChange(callback func(FileEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching. ctx 取消或调用 Stop 后停止。
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return errors.New("watcher already running")
	}

	w.last = w.stat()
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)

	w.logger.Info("file watcher started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("debounce_delay", w.debounceDelay))
	return nil
}

// Stop stops the watcher and waits for the loop to exit
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	w.logger.Info("file watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is running
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Path returns the watched path
func (w *FileWatcher) Path() string { return w.path }

func (w *FileWatcher) stat() *fileState {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil
	}
	return &fileState{modTime: info.ModTime(), size: info.Size()}
}

func (w *FileWatcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// 防抖：连续写入只在最后一次之后 debounceDelay 触发一次
	var (
		pending  *FileEvent
		debounce <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evt, ok := w.check(); ok {
				pending = &evt
				debounce = time.After(w.debounceDelay)
			}
		case <-debounce:
			debounce = nil
			if pending != nil {
				w.dispatch(*pending)
				pending = nil
			}
		}
	}
}

func (w *FileWatcher) check() (FileEvent, bool) {
	cur := w.stat()

	w.mu.Lock()
	prev := w.last
	w.last = cur
	w.mu.Unlock()

	evt := FileEvent{Path: w.path, Timestamp: time.Now()}
	switch {
	case prev == nil && cur == nil:
		return evt, false
	case prev == nil:
		evt.Op = FileOpCreate
	case cur == nil:
		evt.Op = FileOpRemove
	case !cur.modTime.Equal(prev.modTime) || cur.size != prev.size:
		evt.Op = FileOpWrite
	default:
		return evt, false
	}
	return evt, true
}

func (w *FileWatcher) dispatch(evt FileEvent) {
	w.mu.Lock()
	callbacks := make([]func(FileEvent), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Debug("dispatching file event", zap.String("op", evt.Op.String()))
	for _, cb := range callbacks {
		cb(evt)
	}
}
