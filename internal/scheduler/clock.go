package scheduler

import "time"

// Timer is a pending callback that can be stopped before it runs.
type Timer interface {
	Stop() bool
}

// Clock is the time source the registry schedules against.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// SystemClock runs callbacks on the runtime timer heap.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (systemClock) Now() time.Time {
	return time.Now()
}
