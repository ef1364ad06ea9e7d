package assistant

import (
	"context"
	"fmt"
	log "log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// Submit runs one dispatch in its own goroutine and returns its task id.
// Nothing waits for the result; a panic inside a handler is recovered and
// logged against the id.
func (a *Assistant) Submit(ctx context.Context, text string) string {
	id := uuid.NewString()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Dispatch task failed",
					"task", id,
					"err", fmt.Sprint(r),
					"stack", string(debug.Stack()))
			}
		}()

		start := time.Now()
		out := a.Dispatch(ctx, text)
		log.Debug("Dispatch task finished",
			"task", id,
			"fired", out.Fired,
			"exit", out.Exit,
			"took", time.Since(start))
	}()

	return id
}

// Wait blocks until every submitted task has returned or timeout elapses.
// It reports whether all tasks finished.
func (a *Assistant) Wait(timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return true
	case <-time.After(timeout):
		return false
	}
}
