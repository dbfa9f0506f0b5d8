// Package hostenv defines the host capabilities the lifecycle system
// consumes: tag storage, periodic task scheduling, structured log
// emission, a privilege check, and a clock. Each capability is an
// interface so the footprints never issue OS calls directly; the
// file-backed implementation in this package is the default and doubles
// as the test environment.
package hostenv

import (
	"errors"
	"time"
)

// Capability errors.
var (
	// ErrTagNotFound is returned by TagStore.Get for an absent tag.
	ErrTagNotFound = errors.New("tag not found")
	// ErrTaskNotFound is returned by TaskScheduler.Unregister for an
	// unknown task id.
	ErrTaskNotFound = errors.New("task not found")
)

// TagStore writes identity/metadata markers to host locations. A
// location is an opaque locator the store knows how to address.
type TagStore interface {
	Set(location, key, value string) error
	Get(location, key string) (string, error)
	Clear(location, key string) error
}

// TaskDescriptor describes one registered periodic task.
type TaskDescriptor struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	Program   string        `json:"program"`
	Interval  time.Duration `json:"interval"`
	RunAtLoad bool          `json:"run_at_load"`
}

// TaskScheduler registers long-lived periodic tasks with the host.
type TaskScheduler interface {
	Register(d TaskDescriptor) error
	Unregister(id string) error
	List() ([]TaskDescriptor, error)
}

// LogSink emits structured entries into the host's log stream.
type LogSink interface {
	Emit(tag, level, message string) error
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Env bundles the host capabilities handed to the footprints and the
// controller.
type Env struct {
	Tags   TagStore
	Tasks  TaskScheduler
	Syslog LogSink
	Clock  Clock

	// Privileged reports whether the process may mutate host state.
	// Consulted before every mutating operation; returning false is a
	// precondition failure, not a retryable error.
	Privileged func() bool
}
