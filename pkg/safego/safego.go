package safego

import (
	"go.uber.org/zap"
)

// Go launches a goroutine with panic recovery.
// If the goroutine panics, the panic value is logged and the goroutine exits
// cleanly instead of crashing the process. Detached task handlers must run
// through this so a single bad payload cannot take down the scheduler.
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Goroutine panicked",
					zap.String("goroutine", name),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
		}()
		fn()
	}()
}

// Run executes fn inline with panic recovery, converting a panic into an
// error return. Used by the task executor where the caller needs to observe
// the failure (to mark the task attempt failed) rather than just log it.
func Run(logger *zap.Logger, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic",
				zap.String("op", name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = &PanicError{Op: name, Value: r}
		}
	}()
	return fn()
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return "panic in " + e.Op
}
