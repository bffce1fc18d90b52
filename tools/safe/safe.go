package safe

import (
	"wavechat/logger"
)

// Go starts a goroutine that recovers from panic, so background work
// (status writes, cache refreshes) can never take the process down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

// Call runs f on the current goroutine with the same panic guard.
// Used around per-frame event dispatch.
func Call(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[safe.Call] panic recovered: %v", r)
		}
	}()
	f()
}
