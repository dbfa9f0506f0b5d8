package footprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/EsKaye/LilithOS-KernalInit/internal/fsutil"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/synthreport"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// ReportForge periodically writes synthetic crash reports into the
// configured report directory. Inter-arrival timing is the runner's
// bounded jitter, not a fixed period. Apply writes the first report
// synchronously before the loop starts.
type ReportForge struct {
	base
	runner *Runner

	// Host is the injected header metadata handed to the generator.
	Host synthreport.HostInfo
}

// NewReportForge builds the report-forging footprint.
func NewReportForge(deps Deps) *ReportForge {
	r := &ReportForge{
		base: base{deps: deps, id: types.ComponentReportForge},
		Host: synthreport.DefaultHost(),
	}
	r.runner = NewRunner("reportforge",
		deps.Config.LoopMinInterval, deps.Config.LoopMaxInterval,
		deps.logger(), r.tickLoop)
	return r
}

func (r *ReportForge) ID() types.ComponentID { return r.id }

// Selector covers the whole report directory.
func (r *ReportForge) Selector() []string {
	return []string{r.deps.Config.ReportDir}
}

func (r *ReportForge) Apply(ctx context.Context, backupRef string) (*types.PersistenceRecord, error) {
	rec, err := r.applyCommon(ctx, backupRef, r.healthy, r.install)
	if err != nil {
		return nil, err
	}
	r.runner.Start()
	return rec, nil
}

func (r *ReportForge) Verify() (types.VerifyState, error) {
	return r.verifyCommon(r.healthy)
}

func (r *ReportForge) Rollback(ctx context.Context) error {
	return r.rollbackCommon(ctx, r.runner.Stop)
}

func (r *ReportForge) Cleanup() error {
	return r.cleanupCommon(r.runner.Stop, r.remove)
}

// Running reports whether the background loop is live.
func (r *ReportForge) Running() bool { return r.runner.Running() }

// StopLoop stops the background loop without rolling anything back.
func (r *ReportForge) StopLoop(grace time.Duration) error { return r.runner.Stop(grace) }

func (r *ReportForge) install(ctx context.Context, corr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.writeReport()
}

func (r *ReportForge) tickLoop(ctx context.Context) error {
	return r.writeReport()
}

// writeReport generates one report and writes it under a unique name.
func (r *ReportForge) writeReport() error {
	report, err := synthreport.Generate(synthreport.Options{
		Now:  r.deps.Env.Clock.Now(),
		Host: r.Host,
	})
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	if err := os.MkdirAll(r.deps.Config.ReportDir, 0755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	name := strings.TrimSuffix(report.Filename(), ".crash")
	path := filepath.Join(r.deps.Config.ReportDir, name+".crash")
	for n := 1; fsutil.FileExists(path); n++ {
		path = filepath.Join(r.deps.Config.ReportDir, fmt.Sprintf("%s.%d.crash", name, n))
	}
	return fsutil.WriteFileAtomic(path, []byte(report.Render()), 0644)
}

// healthy requires the report directory to exist and hold at least one
// crash report.
func (r *ReportForge) healthy(string) (bool, error) {
	entries, err := os.ReadDir(r.deps.Config.ReportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".crash" {
			return true, nil
		}
	}
	return false, nil
}

// remove deletes every forged report; the directory itself is left for
// whatever else writes there.
func (r *ReportForge) remove(string) error {
	entries, err := os.ReadDir(r.deps.Config.ReportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".crash" {
			continue
		}
		if err := os.Remove(filepath.Join(r.deps.Config.ReportDir, e.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
