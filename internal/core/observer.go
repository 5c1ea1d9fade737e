package core

import "time"

// Observer receives pipeline events for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	FileUploaded(format Format, size int64)
	FileRejected(code string)
	CleanApplied(op CleanOp)
	PassCompleted(d time.Duration, err error)
	Converted(format Format, size int64)
	ConvertFailed(format Format)
	SessionsActive(n int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) FileUploaded(Format, int64)         {}
func (NopObserver) FileRejected(string)                {}
func (NopObserver) CleanApplied(CleanOp)               {}
func (NopObserver) PassCompleted(time.Duration, error) {}
func (NopObserver) Converted(Format, int64)            {}
func (NopObserver) ConvertFailed(Format)               {}
func (NopObserver) SessionsActive(int)                 {}
