package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"alarmd/internal/alarm"
	"alarmd/internal/config"
	"alarmd/internal/notify"
	"alarmd/internal/server"
	"alarmd/internal/snapshot"
)

// Daemon wires the alarm engine together from config: logger, snapshot
// store, notifier, manager, request server, and buzzer loop.
type Daemon struct {
	cfg       *config.Config
	logger    alarm.Logger
	manager   *alarm.Manager
	server    *server.Server
	buzzer    *alarm.Buzzer
	snapshots alarm.SnapshotStore
	logFile   *os.File
}

// NewDaemon constructs a fully wired Daemon. A missing sound file or an
// unreadable snapshot is fatal here, before any loop starts.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	runID := uuid.New().String()
	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	snapshots, err := snapshot.NewStoreFromConfig(cfg.Snapshot)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}

	notifier, err := notify.NewExecNotifier(cfg.Sound.Player, cfg.Sound.Path, logger)
	if err != nil {
		snapshots.Close()
		logFile.Close()
		return nil, err
	}

	manager, err := alarm.NewManager(alarm.RealClock{}, logger, notifier, snapshots)
	if err != nil {
		snapshots.Close()
		logFile.Close()
		return nil, err
	}

	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		manager:   manager,
		server:    server.New(cfg.SocketPath, manager, logger),
		buzzer:    alarm.NewBuzzer(manager, cfg.PollInterval(), logger),
		snapshots: snapshots,
		logFile:   logFile,
	}, nil
}

// Run starts the buzzer loop and the request server and blocks until ctx is
// cancelled or the server fails. The final cleanup and snapshot run on every
// exit path.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.server.Listen(); err != nil {
		d.finalize()
		return err
	}

	d.logger.Info("daemon started",
		"socket", d.cfg.SocketPath,
		"poll_interval", d.cfg.PollInterval().String(),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer d.finalize()

	buzzerDone := make(chan struct{})
	go func() {
		d.buzzer.Run(ctx)
		close(buzzerDone)
	}()

	err := d.server.Run(ctx)

	cancel()
	<-buzzerDone
	return err
}

// finalize flushes a last cleanup + snapshot and releases resources.
func (d *Daemon) finalize() {
	if err := d.manager.Finalize(); err != nil {
		d.logger.Error("final snapshot failed", "err", err)
	}
	if err := d.snapshots.Close(); err != nil {
		d.logger.Error("closing snapshot store", "err", err)
	}
	d.logger.Info("daemon stopped")
	if d.logFile != nil {
		d.logFile.Close()
	}
}
