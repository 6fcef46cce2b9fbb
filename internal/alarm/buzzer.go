package alarm

import (
	"context"
	"time"
)

// Buzzer is the background trigger loop. It re-evaluates the due list once
// per poll interval until its context is cancelled; the interval only needs
// to be short enough to not miss a minute boundary.
type Buzzer struct {
	manager  *Manager
	interval time.Duration
	logger   Logger
}

func NewBuzzer(manager *Manager, interval time.Duration, logger Logger) *Buzzer {
	return &Buzzer{
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled.
func (b *Buzzer) Run(ctx context.Context) {
	b.logger.Debug("buzzer started", "interval", b.interval.String())

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("buzzer stopped")
			return
		case <-ticker.C:
			b.manager.Poll()
		}
	}
}
