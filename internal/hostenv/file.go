// File-backed implementations of the host capabilities. Tags are files
// under a location directory, tasks are JSON descriptors in a task
// directory, and the log sink appends JSON lines to a single file.
package hostenv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/EsKaye/LilithOS-KernalInit/internal/fsutil"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// NewFileEnv returns an Env whose capabilities are all file-backed
// under the directories named by cfg.
func NewFileEnv(cfg types.Config) Env {
	return Env{
		Tags:   &FileTagStore{},
		Tasks:  &FileTaskScheduler{Dir: cfg.TaskDir},
		Syslog: &FileLogSink{Path: cfg.SyslogPath, Clock: SystemClock{}},
		Clock:  SystemClock{},
		Privileged: func() bool {
			return canWrite(cfg.DataDir)
		},
	}
}

// canWrite reports whether the process can create files under dir.
func canWrite(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".privcheck-*")
	if err != nil {
		return false
	}
	probe.Close()
	os.Remove(probe.Name())
	return true
}

// FileTagStore stores each tag as a file named key inside the location
// directory. Writes are atomic so a concurrent reader never sees a
// half-written value.
type FileTagStore struct{}

var _ TagStore = (*FileTagStore)(nil)

func (s *FileTagStore) Set(location, key, value string) error {
	if err := os.MkdirAll(location, 0755); err != nil {
		return fmt.Errorf("creating tag location %s: %w", location, err)
	}
	return fsutil.WriteFileAtomic(filepath.Join(location, key), []byte(value), 0644)
}

func (s *FileTagStore) Get(location, key string) (string, error) {
	data, err := os.ReadFile(filepath.Join(location, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTagNotFound
		}
		return "", fmt.Errorf("reading tag %s/%s: %w", location, key, err)
	}
	return string(data), nil
}

func (s *FileTagStore) Clear(location, key string) error {
	err := os.Remove(filepath.Join(location, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing tag %s/%s: %w", location, key, err)
	}
	return nil
}

// FileTaskScheduler keeps one JSON descriptor per task under Dir.
type FileTaskScheduler struct {
	Dir string
}

var _ TaskScheduler = (*FileTaskScheduler)(nil)

func (s *FileTaskScheduler) descriptorPath(id string) string {
	return filepath.Join(s.Dir, id+".task.json")
}

func (s *FileTaskScheduler) Register(d TaskDescriptor) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("creating task dir %s: %w", s.Dir, err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding task %s: %w", d.ID, err)
	}
	return fsutil.WriteFileAtomic(s.descriptorPath(d.ID), data, 0644)
}

func (s *FileTaskScheduler) Unregister(id string) error {
	err := os.Remove(s.descriptorPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("unregistering task %s: %w", id, err)
	}
	return nil
}

func (s *FileTaskScheduler) List() ([]TaskDescriptor, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing tasks in %s: %w", s.Dir, err)
	}

	var tasks []TaskDescriptor
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".task.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Dir, entry.Name()))
		if err != nil {
			continue
		}
		var d TaskDescriptor
		if err := json.Unmarshal(data, &d); err != nil {
			// Malformed descriptors are skipped, not fatal.
			continue
		}
		tasks = append(tasks, d)
	}
	return tasks, nil
}

// FileLogSink appends one JSON line per entry to Path.
type FileLogSink struct {
	Path  string
	Clock Clock

	mu sync.Mutex
}

var _ LogSink = (*FileLogSink)(nil)

// logLine is the on-disk shape of one emitted entry.
type logLine struct {
	Timestamp string `json:"ts"`
	Tag       string `json:"tag"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

func (s *FileLogSink) Emit(tag, level, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	line, err := json.Marshal(logLine{
		Timestamp: s.Clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Tag:       tag,
		Level:     level,
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("encoding log line: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending to %s: %w", s.Path, err)
	}
	return nil
}
