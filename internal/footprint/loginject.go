package footprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// logTag is the tag emitted into the system log stream.
const logTag = "com.lilithos.agent"

// LogInject periodically emits structured entries into both the host
// log stream and a private log file, each carrying the stable
// correlation id. Apply writes the first pair synchronously before the
// background loop starts, so verify never sees loop output without a
// registry record.
type LogInject struct {
	base
	runner *Runner

	mu  sync.Mutex
	seq int
}

// NewLogInject builds the log-injection footprint.
func NewLogInject(deps Deps) *LogInject {
	l := &LogInject{base: base{deps: deps, id: types.ComponentLogInject}}
	l.runner = NewRunner("loginject",
		deps.Config.LoopMinInterval, deps.Config.LoopMaxInterval,
		deps.logger(), l.tickLoop)
	return l
}

func (l *LogInject) ID() types.ComponentID { return l.id }

// privateLogPath is the private file the loop appends to.
func (l *LogInject) privateLogPath() string {
	return filepath.Join(l.deps.Config.DataDir, "logs", "inject.log")
}

// Selector covers the system log file and the private log.
func (l *LogInject) Selector() []string {
	return []string{l.deps.Config.SyslogPath, l.privateLogPath()}
}

func (l *LogInject) Apply(ctx context.Context, backupRef string) (*types.PersistenceRecord, error) {
	rec, err := l.applyCommon(ctx, backupRef, l.healthy, l.install)
	if err != nil {
		return nil, err
	}
	// Loop starts only after the record and first artifacts exist.
	l.runner.Start()
	return rec, nil
}

func (l *LogInject) Verify() (types.VerifyState, error) {
	return l.verifyCommon(l.healthy)
}

func (l *LogInject) Rollback(ctx context.Context) error {
	return l.rollbackCommon(ctx, l.runner.Stop)
}

func (l *LogInject) Cleanup() error {
	return l.cleanupCommon(l.runner.Stop, l.remove)
}

// Running reports whether the background loop is live.
func (l *LogInject) Running() bool { return l.runner.Running() }

// StopLoop stops the background loop without rolling anything back.
func (l *LogInject) StopLoop(grace time.Duration) error { return l.runner.Stop(grace) }

// install writes the first entry pair synchronously.
func (l *LogInject) install(ctx context.Context, corr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.emit(corr)
}

// tickLoop is the background loop body.
func (l *LogInject) tickLoop(ctx context.Context) error {
	rec, err := l.deps.Registry.Get(l.id)
	if err != nil {
		return err
	}
	return l.emit(rec.CorrelationID)
}

// emit writes one entry to the host log stream and one line to the
// private log, both tagged with corr.
func (l *LogInject) emit(corr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	message := fmt.Sprintf("session %s heartbeat %d", corr, l.seq)
	if err := l.deps.Env.Syslog.Emit(logTag, "notice", message); err != nil {
		return fmt.Errorf("emitting to host log: %w", err)
	}

	path := l.privateLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating private log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening private log: %w", err)
	}
	defer f.Close()
	ts := l.deps.Env.Clock.Now().UTC().Format("2006-01-02T15:04:05Z07:00")
	if _, err := fmt.Fprintf(f, "%s %s %s\n", ts, corr, message); err != nil {
		return fmt.Errorf("appending private log: %w", err)
	}
	return nil
}

// healthy requires the private log to exist and carry corr.
func (l *LogInject) healthy(corr string) (bool, error) {
	data, err := os.ReadFile(l.privateLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return corr != "" && strings.Contains(string(data), corr), nil
}

// remove deletes the private log. The host log stream is append-only;
// destructive cleanup does not rewrite it.
func (l *LogInject) remove(string) error {
	err := os.Remove(l.privateLogPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
