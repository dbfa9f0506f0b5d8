package footprint

import (
	"context"
	"errors"

	"github.com/EsKaye/LilithOS-KernalInit/internal/hostenv"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// tagKey is the key the identity marker is written under at every
// configured location.
const tagKey = "lilith-install-id"

// Tag writes the correlation id as an identity marker to a fixed set of
// host locations. One-shot: no background loop.
type Tag struct {
	base
}

// NewTag builds the tag footprint.
func NewTag(deps Deps) *Tag {
	return &Tag{base: base{deps: deps, id: types.ComponentTag}}
}

func (t *Tag) ID() types.ComponentID { return t.id }

// Selector covers every tag location.
func (t *Tag) Selector() []string {
	return append([]string(nil), t.deps.Config.TagLocations...)
}

func (t *Tag) Apply(ctx context.Context, backupRef string) (*types.PersistenceRecord, error) {
	return t.applyCommon(ctx, backupRef, t.healthy, t.install)
}

func (t *Tag) Verify() (types.VerifyState, error) {
	return t.verifyCommon(t.healthy)
}

func (t *Tag) Rollback(ctx context.Context) error {
	return t.rollbackCommon(ctx, nil)
}

func (t *Tag) Cleanup() error {
	return t.cleanupCommon(nil, t.remove)
}

// install writes the marker to every location.
func (t *Tag) install(ctx context.Context, corr string) error {
	for _, location := range t.deps.Config.TagLocations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.deps.Env.Tags.Set(location, tagKey, corr); err != nil {
			return err
		}
	}
	return nil
}

// healthy reports whether every location still carries the marker.
func (t *Tag) healthy(corr string) (bool, error) {
	for _, location := range t.deps.Config.TagLocations {
		value, err := t.deps.Env.Tags.Get(location, tagKey)
		if err != nil {
			if errors.Is(err, hostenv.ErrTagNotFound) {
				return false, nil
			}
			return false, err
		}
		if value != corr {
			return false, nil
		}
	}
	return true, nil
}

// remove clears the marker from every location, continuing past
// individual failures so one stuck location does not strand the rest.
func (t *Tag) remove(string) error {
	var firstErr error
	for _, location := range t.deps.Config.TagLocations {
		if err := t.deps.Env.Tags.Clear(location, tagKey); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
