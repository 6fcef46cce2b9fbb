// Package notify launches the external notification process when an alarm
// fires. The daemon's only side effect besides the snapshot file lives here.
package notify

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"alarmd/internal/alarm"
)

// ExecNotifier plays the configured sound by spawning a player process,
// e.g. "mpv --loop --no-video <sound>".
type ExecNotifier struct {
	command []string
	sound   string
	logger  alarm.Logger
}

// NewExecNotifier validates the player command and sound file. A missing
// sound file is a startup error; the daemon must not run without one.
func NewExecNotifier(command []string, sound string, logger alarm.Logger) (*ExecNotifier, error) {
	if len(command) == 0 {
		return nil, errors.New("player command is empty")
	}
	if _, err := os.Stat(sound); err != nil {
		return nil, fmt.Errorf("sound file %q was not found: %w", sound, err)
	}
	return &ExecNotifier{
		command: command,
		sound:   sound,
		logger:  logger,
	}, nil
}

// Start spawns the player and returns a handle for stopping it.
func (n *ExecNotifier) Start() (alarm.NotificationHandle, error) {
	args := append(append([]string{}, n.command[1:]...), n.sound)
	cmd := exec.Command(n.command[0], args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting player: %w", err)
	}
	n.logger.Debug("notification started", "pid", cmd.Process.Pid)

	// Reap the process when it exits on its own.
	go func() {
		_ = cmd.Wait()
	}()

	return &processHandle{cmd: cmd}, nil
}

var _ alarm.Notifier = (*ExecNotifier)(nil)

type processHandle struct {
	cmd *exec.Cmd
}

// Stop terminates the player. A player that already exited is not an error.
func (h *processHandle) Stop() error {
	err := h.cmd.Process.Signal(syscall.SIGTERM)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return fmt.Errorf("terminating player: %w", err)
}
