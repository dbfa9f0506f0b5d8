package footprint

import (
	"context"
	"time"

	"github.com/EsKaye/LilithOS-KernalInit/internal/hostenv"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// Service registers a long-lived periodic task with the host scheduler
// so the agent re-asserts itself at system start and at fixed
// intervals. One-shot: the scheduler owns the periodic execution, not
// this process.
type Service struct {
	base
}

// serviceLabel is the scheduler-facing label for the registered task.
const serviceLabel = "com.lilithos.kernalinit.keepalive"

// serviceInterval is the re-assertion period handed to the scheduler.
const serviceInterval = 5 * time.Minute

// NewService builds the service-registration footprint.
func NewService(deps Deps) *Service {
	return &Service{base: base{deps: deps, id: types.ComponentService}}
}

func (s *Service) ID() types.ComponentID { return s.id }

// Selector covers the scheduler's descriptor directory.
func (s *Service) Selector() []string {
	return []string{s.deps.Config.TaskDir}
}

func (s *Service) Apply(ctx context.Context, backupRef string) (*types.PersistenceRecord, error) {
	return s.applyCommon(ctx, backupRef, s.healthy, s.install)
}

func (s *Service) Verify() (types.VerifyState, error) {
	return s.verifyCommon(s.healthy)
}

func (s *Service) Rollback(ctx context.Context) error {
	return s.rollbackCommon(ctx, nil)
}

func (s *Service) Cleanup() error {
	return s.cleanupCommon(nil, s.remove)
}

// taskID derives the stable task id for corr.
func taskID(corr string) string {
	return "keepalive-" + corr
}

func (s *Service) install(ctx context.Context, corr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.deps.Env.Tasks.Register(hostenv.TaskDescriptor{
		ID:        taskID(corr),
		Label:     serviceLabel,
		Program:   "kernalinit",
		Interval:  serviceInterval,
		RunAtLoad: true,
	})
}

// healthy reports whether the task is still registered.
func (s *Service) healthy(corr string) (bool, error) {
	tasks, err := s.deps.Env.Tasks.List()
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		if t.ID == taskID(corr) {
			return true, nil
		}
	}
	return false, nil
}

// remove unregisters the task; an already-absent task is fine.
func (s *Service) remove(corr string) error {
	if corr == "" {
		return nil
	}
	err := s.deps.Env.Tasks.Unregister(taskID(corr))
	if err == hostenv.ErrTaskNotFound {
		return nil
	}
	return err
}
