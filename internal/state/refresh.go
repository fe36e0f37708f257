package state

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/fleetd/internal/proxy"
)

// runPollLoop drives one pull binding: query on its interval, store on
// change, store an explicit nil on query failure so the path reflects the
// outage instead of going silently stale. A refresh hint wakes the loop
// ahead of its next tick.
func (a *Aggregator) runPollLoop(dc proxy.DataCommand, comp *proxy.ComponentProxy) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.pollIntervalFor(dc.Status))
	defer ticker.Stop()
	hints := a.hintChan(dc.Path)

	failed := false
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
		case <-hints:
		}

		ctx, cancel := context.WithTimeout(a.runCtx, pollCallTimeout)
		value, changed, err := comp.Poll(ctx, dc.Status)
		cancel()

		if err != nil {
			a.logger.Warn("poll failed, marking path unavailable",
				"path", dc.Path,
				"error", err,
			)
			a.setExternal(dc.Path, nil)
			failed = true
			continue
		}
		// The first success after a failure must restore the path even
		// when the device value matched its pre-outage reading; the
		// adapter's change detection only sees the device side, not the
		// nil marker stored during the outage.
		if changed || failed {
			a.setExternal(dc.Path, value)
		}
		failed = false
	}
}

// runPeriodicRefresh re-issues every push binding's data command on the
// refresh interval. Auto-published events keep push paths current between
// refreshes; the periodic pass re-syncs anything that drifted while a
// device was quiet. Bindings refresh concurrently and fail independently.
func (a *Aggregator) runPeriodicRefresh() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
		}

		var wg sync.WaitGroup
		for _, dc := range a.bindings {
			if !dc.Push {
				continue
			}
			wg.Add(1)
			go func(dc proxy.DataCommand) {
				defer wg.Done()
				a.refreshBinding(dc)
			}(dc)
		}
		wg.Wait()
	}
}

// refreshBinding re-issues one binding's data command and stores the
// result, nil included.
func (a *Aggregator) refreshBinding(dc proxy.DataCommand) {
	comp, err := a.component(dc)
	if err != nil {
		a.logger.Warn("refresh binding skipped", "path", dc.Path, "error", err)
		return
	}

	value, err := comp.ExecuteAndWait(a.runCtx, dc.Command, dc.Status, a.cfg.BootstrapTimeout, nil)
	if err != nil {
		a.logger.Warn("refresh binding failed", "path", dc.Path, "error", err)
		return
	}
	a.setExternal(dc.Path, value)
}

// TriggerRefresh wakes one path's poll loop ahead of its next interval, or
// for a push binding re-issues its data command immediately. Decouples an
// externally requested refresh from the fixed polling cadence.
//
// Returns:
//   - error: ErrUnknownPath when no binding produces the path
func (a *Aggregator) TriggerRefresh(path string) error {
	for _, dc := range a.bindings {
		if dc.Path != path {
			continue
		}

		if dc.Push {
			go a.refreshBinding(dc)
			return nil
		}

		select {
		case a.hintChan(path) <- struct{}{}:
		default:
			// A hint is already pending.
		}
		return nil
	}
	return ErrUnknownPath
}

// hintChan lazily creates the per-path refresh hint channel.
func (a *Aggregator) hintChan(path string) chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch, ok := a.hints[path]
	if !ok {
		ch = make(chan struct{}, 1)
		a.hints[path] = ch
	}
	return ch
}

// pollIntervalFor resolves a status's poll cadence, preferring the
// per-status override.
func (a *Aggregator) pollIntervalFor(status string) time.Duration {
	if d, ok := a.cfg.PollIntervals[status]; ok && d > 0 {
		return d
	}
	return a.cfg.PollInterval
}
