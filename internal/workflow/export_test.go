package workflow

import "time"

// SetNow fixes the engine's clock so date-window tests are deterministic.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}
