package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/taskdeck/pkg/observability"
)

// SafeGo executes fn in a goroutine with a timeout, panic recovery, and
// error logging. Use it instead of a bare go statement for fire-and-
// forget work so a panic in background code cannot take the process
// down.
func SafeGo(parent context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is SafeGo for functions that don't return an error.
func SafeGoNoError(parent context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context)) {
	SafeGo(parent, timeout, taskName, logger, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
