// Shared helpers for kernalinit CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/EsKaye/LilithOS-KernalInit/internal/backup"
	"github.com/EsKaye/LilithOS-KernalInit/internal/hostenv"
	"github.com/EsKaye/LilithOS-KernalInit/internal/lifecycle"
	"github.com/EsKaye/LilithOS-KernalInit/internal/logging"
	"github.com/EsKaye/LilithOS-KernalInit/internal/registry"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// runtime bundles everything a lifecycle command needs. The caller must
// defer rt.close().
type runtime struct {
	cfg types.Config
	log *logging.Logger
	reg *registry.Registry
	ctl *lifecycle.Controller
}

// newRuntime builds the controller stack from the resolved
// configuration. Returns an error suitable for the CLI.
func newRuntime() (*runtime, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{
		Level:   logLevel(),
		LogDir:  cfg.DataDir,
		Service: "kernalinit",
	})

	reg, err := registry.Open(cfg.DataDir, log.Logger)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("open registry: %w", err)
	}

	env := hostenv.NewFileEnv(cfg)
	ctl := lifecycle.New(reg, backup.NewManager(cfg.DataDir, env.Clock, log.Logger), env, cfg, log.Logger)
	return &runtime{cfg: cfg, log: log, reg: reg, ctl: ctl}, nil
}

func (rt *runtime) close() {
	rt.ctl.StopLoops()
	if err := rt.reg.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close registry:", err)
	}
	rt.log.Close()
}

// printReport writes an operation report to stdout, honoring --json.
func printReport(r *types.Report) {
	if flagJSON {
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "marshal report:", err)
			os.Exit(exitSysError)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%s: started %s, finished %s\n", r.Operation,
		r.StartedAt.Format("2006-01-02T15:04:05Z"),
		r.FinishedAt.Format("2006-01-02T15:04:05Z"))
	for _, o := range r.Outcomes {
		if o.Error != "" {
			fmt.Printf("  %-12s %s: %s\n", o.Component, o.Outcome, o.Error)
			continue
		}
		fmt.Printf("  %-12s %s\n", o.Component, o.Outcome)
	}
}

// printStates writes the per-component verify states to stdout,
// honoring --json.
func printStates(states map[types.ComponentID]types.VerifyState) {
	if flagJSON {
		out, err := json.MarshalIndent(states, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "marshal states:", err)
			os.Exit(exitSysError)
		}
		fmt.Println(string(out))
		return
	}

	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%-12s %s\n", id, states[types.ComponentID(id)])
	}
}

// exitReport exits with the code the report warrants: 0 when every
// outcome succeeded or merely degraded, 2 when any outcome failed.
func exitReport(r *types.Report) {
	for _, o := range r.Outcomes {
		if o.Outcome == types.OutcomeFailed {
			os.Exit(exitSysError)
		}
	}
	os.Exit(exitSuccess)
}
