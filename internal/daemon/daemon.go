package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"convoy/internal/config"
	"convoy/internal/logging"
	"convoy/internal/store"
)

const logFilePattern = "convoy-*.log"

// Daemon owns the long-running API process and enforces single-instance
// execution against one data directory.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	api     *apiServer
	logPath string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool      `json:"running"`
	Address      string    `json:"address,omitempty"`
	StartedAt    time.Time `json:"startedAt,omitzero"`
	DatabasePath string    `json:"databasePath"`
	LockFilePath string    `json:"lockFilePath"`
	LogPath      string    `json:"logPath"`
}

// New constructs a daemon serving handler on the configured bind address.
func New(cfg *config.Config, st *store.Store, handler http.Handler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || handler == nil {
		return nil, errors.New("daemon requires config, store, and handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		api:      newAPIServer(cfg.Paths.APIBind, handler, logger),
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName(time.Now())),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, seeds the system prompt, prunes expired
// log files and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another convoy instance holds %s", d.lockPath)
	}

	prompt, created, err := d.store.EnsureDefaultPrompt(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("seed default prompt: %w", err)
	}
	if created {
		d.logger.Info("default prompt created", logging.Int64("prompt_id", prompt.ID))
	}

	if removed := logging.CleanupOldLogs(d.logger, d.cfg.Paths.LogDir, logFilePattern, d.cfg.Logging.RetentionDays, d.logPath); len(removed) > 0 {
		d.logger.Info("expired logs removed", logging.Int("count", len(removed)))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("convoy daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
	)
	return nil
}

// Stop stops serving and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
		)
	}
	d.running.Store(false)
	d.logger.Info("convoy daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the API is listening on, or "" when stopped.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	if status.Running {
		status.Address = d.api.address()
		status.StartedAt = d.startedAt
	}
	return status
}

// Locked reports whether another process currently holds the lock at path.
func Locked(path string) (bool, error) {
	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
