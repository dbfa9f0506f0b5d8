package types

import (
	"errors"
	"path/filepath"
	"time"
)

// Config holds the directories and timing parameters shared by the
// registry, backup manager, footprints, and controller.
type Config struct {
	// DataDir holds the registry files, backups, and private logs.
	DataDir string `json:"data_dir" yaml:"data_dir"`
	// TagLocations are the host locations the tag footprint marks.
	TagLocations []string `json:"tag_locations" yaml:"tag_locations"`
	// TaskDir is where the file-backed scheduler keeps task descriptors.
	TaskDir string `json:"task_dir" yaml:"task_dir"`
	// SyslogPath is the file the file-backed log sink appends to.
	SyslogPath string `json:"syslog_path" yaml:"syslog_path"`
	// ReportDir is where forged diagnostic reports are written. A real
	// diagnostic subsystem may also write here; report names are unique.
	ReportDir string `json:"report_dir" yaml:"report_dir"`

	// LoopMinInterval and LoopMaxInterval bound the jittered sleep of
	// the background loops. Jitter, not a fixed period.
	LoopMinInterval time.Duration `json:"loop_min_interval" yaml:"loop_min_interval"`
	LoopMaxInterval time.Duration `json:"loop_max_interval" yaml:"loop_max_interval"`
	// StopGrace bounds the wait for a loop to acknowledge cancellation
	// before rollback proceeds without it.
	StopGrace time.Duration `json:"stop_grace" yaml:"stop_grace"`
}

// Config validation errors.
var (
	ErrDataDirEmpty    = errors.New("data_dir must not be empty")
	ErrIntervalInvalid = errors.New("loop intervals must satisfy 0 < min <= max")
	ErrStopGraceZero   = errors.New("stop_grace must be positive")
)

// WithDefaults returns a copy of c with unset fields filled in relative
// to DataDir.
func (c Config) WithDefaults() Config {
	if len(c.TagLocations) == 0 {
		c.TagLocations = []string{
			filepath.Join(c.DataDir, "host", "nvram"),
			filepath.Join(c.DataDir, "host", "profile"),
		}
	}
	if c.TaskDir == "" {
		c.TaskDir = filepath.Join(c.DataDir, "host", "tasks")
	}
	if c.SyslogPath == "" {
		c.SyslogPath = filepath.Join(c.DataDir, "host", "system.log")
	}
	if c.ReportDir == "" {
		c.ReportDir = filepath.Join(c.DataDir, "reports")
	}
	if c.LoopMinInterval == 0 {
		c.LoopMinInterval = 30 * time.Second
	}
	if c.LoopMaxInterval == 0 {
		c.LoopMaxInterval = 2 * time.Minute
	}
	if c.StopGrace == 0 {
		c.StopGrace = 5 * time.Second
	}
	return c
}

// Validate checks that the Config is well-formed. Call after WithDefaults.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.LoopMinInterval <= 0 || c.LoopMaxInterval < c.LoopMinInterval {
		return ErrIntervalInvalid
	}
	if c.StopGrace <= 0 {
		return ErrStopGraceZero
	}
	return nil
}
