package syncengine

import (
	"context"
	"fmt"
	"slices"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
	"github.com/okui/taskdeck/internal/syncstate"
)

// Engine runs one reconciliation pass per invocation: pull, push, deletion
// reconciliation, finalize. Phases execute sequentially; a failed item is
// recorded and skipped, never aborting the batch. Sync state persists only at
// the very end, so a crashed pass is safely retryable.
type Engine struct {
	store    *store.Store
	provider domain.Provider
	state    *syncstate.Manager
	clock    domain.Clock
	logger   domain.Logger
	strategy domain.ConflictStrategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the system clock, for tests.
func WithClock(c domain.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger attaches a logger.
func WithLogger(l domain.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine for one provider.
func New(st *store.Store, provider domain.Provider, state *syncstate.Manager, strategy domain.ConflictStrategy, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		provider: provider,
		state:    state,
		strategy: strategy,
		clock:    domain.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Options parametrizes one sync invocation.
type Options struct {
	PullOnly bool
	PushOnly bool
	// DryRun computes identical counts to a real run while leaving the task
	// store, the remote system, and the persisted sync state untouched.
	DryRun bool
}

// pass carries the per-invocation working set.
type pass struct {
	res            *Result
	fetchedSet     map[string]bool
	touchedByPull  map[string]bool // Local IDs the pull applied; push skips them to avoid echo
	handledDeletes map[string]bool // Local IDs whose pending deletion was processed
	fetched        []domain.ExternalTask
	preMapped      []string // External IDs mapped before this pass ran
	opts           Options
	fetchOK        bool
}

// Sync runs one reconciliation pass.
func (e *Engine) Sync(ctx context.Context, opts Options) (*Result, error) {
	p := &pass{
		res:            &Result{},
		opts:           opts,
		fetchedSet:     make(map[string]bool),
		touchedByPull:  make(map[string]bool),
		handledDeletes: make(map[string]bool),
		// Snapshot the mappings up front: push adds mappings for tasks it
		// creates mid-pass, and those must never be read as remote absences.
		preMapped: e.state.MappedExternalIDs(),
	}

	if !opts.PushOnly {
		e.fetch(ctx, p)
		if p.fetchOK {
			e.pull(ctx, p)
		}
	}
	if !opts.PullOnly {
		e.push(ctx, p)
	}
	if !opts.PushOnly {
		e.reconcileDeletions(ctx, p)
	}
	e.finalize(p)

	e.logInfo("sync", p.res.Summary())
	return p.res, nil
}

// fetch lists the full remote task set. The listing must be complete because
// the delete phase reads absence from it; skipping unchanged records is the
// hash cache's job, not the fetch's. A failure aborts only the pull phase.
func (e *Engine) fetch(ctx context.Context, p *pass) {
	fetched, err := e.provider.FetchTasks(ctx, domain.FetchOptions{})
	if err != nil {
		p.res.recordError(PhasePull, "", "", fmt.Errorf("fetch remote tasks: %w", err))
		return
	}
	slices.SortFunc(fetched, func(a, b domain.ExternalTask) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	p.fetched = fetched
	p.fetchOK = true
	for _, rt := range fetched {
		p.fetchedSet[rt.ID] = true
	}
}

func (e *Engine) pull(ctx context.Context, p *pass) {
	for _, rt := range p.fetched {
		localID, mapped := e.state.LocalID(rt.ID)

		if mapped && e.state.IsDeletedLocally(localID) {
			e.deleteRemote(ctx, p, localID, rt.ID)
			continue
		}

		hash := contentHash(rt)
		if !mapped {
			e.createLocal(p, rt, hash)
			continue
		}

		if e.state.Hash(rt.ID) == hash {
			// Remote copy unchanged since the last pull.
			continue
		}

		local, ok := e.store.Get(localID)
		if !ok {
			p.res.recordError(PhaseMap, localID, rt.ID, fmt.Errorf("mapping references missing local task"))
			continue
		}

		if !e.remoteWinsOver(rt, local) {
			// Local version stands; push may still send it.
			p.res.Conflicts = append(p.res.Conflicts, localID)
			continue
		}

		if !p.opts.DryRun {
			e.applyRemote(rt, local)
			e.state.SetHash(rt.ID, hash)
		}
		p.res.Pulled = append(p.res.Pulled, localID)
		p.touchedByPull[localID] = true
	}
}

// remoteWinsOver applies the conflict strategy for a mapped, changed remote
// record. Remote-wins always applies; local-wins never applies from pull;
// newest-wins compares updatedAt with remote winning ties.
func (e *Engine) remoteWinsOver(rt domain.ExternalTask, local *domain.Task) bool {
	switch e.strategy {
	case domain.LocalWins:
		return false
	case domain.NewestWins:
		return !rt.UpdatedAt.Before(local.UpdatedAt)
	default:
		return true
	}
}

// applyRemote overwrites the whole local record with the mapped remote
// fields, preserving local-only data (notes, blockers, time tracking) and
// the local placement in the hierarchy.
func (e *Engine) applyRemote(rt domain.ExternalTask, local *domain.Task) {
	mapped := e.provider.MapToLocal(rt)
	mapped.ID = local.ID
	mapped.CreatedAt = local.CreatedAt
	mapped.UpdatedAt = rt.UpdatedAt
	mapped.ExternalID = rt.ID
	mapped.ExternalSource = e.provider.Name()
	mapped.ParentID = local.ParentID
	mapped.Notes = local.Notes
	mapped.BlockedBy = local.BlockedBy
	mapped.Recurrence = local.Recurrence
	mapped.EstimateMin = local.EstimateMin
	mapped.ActualMin = local.ActualMin
	e.store.ApplyRemote(&mapped)
}

// createLocal materializes an unmapped remote task locally, resolving the
// parent if the remote parent is already mapped.
func (e *Engine) createLocal(p *pass, rt domain.ExternalTask, hash string) {
	if p.opts.DryRun {
		p.res.Pulled = append(p.res.Pulled, rt.ID)
		return
	}

	mapped := e.provider.MapToLocal(rt)
	mapped.ID = domain.NewTaskID()
	mapped.CreatedAt = rt.CreatedAt
	if mapped.CreatedAt.IsZero() {
		mapped.CreatedAt = e.clock.Now()
	}
	mapped.UpdatedAt = rt.UpdatedAt
	mapped.ExternalID = rt.ID
	mapped.ExternalSource = e.provider.Name()
	if rt.ParentID != "" {
		if parentLocal, ok := e.state.LocalID(rt.ParentID); ok {
			mapped.ParentID = &parentLocal
		}
	}

	e.store.ApplyRemote(&mapped)
	e.state.AddMapping(mapped.ID, rt.ID, hash)
	p.res.Pulled = append(p.res.Pulled, mapped.ID)
	p.touchedByPull[mapped.ID] = true
}

// deleteRemote pushes a pending local deletion to the provider.
func (e *Engine) deleteRemote(ctx context.Context, p *pass, localID, externalID string) {
	p.handledDeletes[localID] = true
	if p.opts.DryRun {
		p.res.Deleted = append(p.res.Deleted, localID)
		return
	}
	if err := e.provider.DeleteTask(ctx, externalID); err != nil {
		p.res.recordError(PhaseDelete, localID, externalID, err)
		return
	}
	e.state.ClearDeletedLocally(localID)
	e.state.RemoveMappingByLocal(localID)
	p.res.Deleted = append(p.res.Deleted, localID)
}

// push sends every non-archived local task that is unmapped, or mapped and
// locally updated since the last sync.
func (e *Engine) push(ctx context.Context, p *pass) {
	since := e.state.LastSync(e.provider.Name())

	for _, t := range e.store.All() {
		if t.Status == domain.StatusArchived {
			continue
		}
		if p.touchedByPull[t.ID] {
			continue
		}
		if e.state.IsDeletedLocally(t.ID) {
			continue
		}

		externalID, mapped := e.state.ExternalID(t.ID)
		switch {
		case !mapped:
			e.pushCreate(ctx, p, t)
		case t.UpdatedAt.After(since):
			e.pushUpdate(ctx, p, t, externalID)
		}
	}
}

func (e *Engine) pushCreate(ctx context.Context, p *pass, t *domain.Task) {
	if p.opts.DryRun {
		p.res.Pushed = append(p.res.Pushed, t.ID)
		return
	}

	ext := e.provider.MapToExternal(*t)
	externalID, err := e.createRemote(ctx, t, ext)
	if err != nil {
		p.res.recordError(PhasePush, t.ID, "", err)
		return
	}

	e.state.AddMapping(t.ID, externalID, "")
	e.store.SetExternalIdentity(t.ID, externalID, e.provider.Name())
	if t.IsDone() {
		if err := e.provider.CompleteTask(ctx, externalID); err != nil {
			p.res.recordError(PhasePush, t.ID, externalID, err)
		}
	}
	p.res.Pushed = append(p.res.Pushed, t.ID)
}

// createRemote uses the subtask endpoint when the provider has one and the
// parent is already mapped; otherwise a plain create.
func (e *Engine) createRemote(ctx context.Context, t *domain.Task, ext domain.ExternalTask) (string, error) {
	if t.ParentID != nil && e.provider.SupportsSubtasks() {
		if sp, ok := e.provider.(domain.SubtaskProvider); ok {
			if parentExt, mapped := e.state.ExternalID(*t.ParentID); mapped {
				return sp.CreateSubtask(ctx, parentExt, ext)
			}
		}
	}
	return e.provider.CreateTask(ctx, ext)
}

func (e *Engine) pushUpdate(ctx context.Context, p *pass, t *domain.Task, externalID string) {
	if p.opts.DryRun {
		p.res.Pushed = append(p.res.Pushed, t.ID)
		return
	}

	if err := e.provider.UpdateTask(ctx, externalID, e.provider.MapToExternal(*t)); err != nil {
		p.res.recordError(PhasePush, t.ID, externalID, err)
		return
	}
	// Completion state crosses through dedicated endpoints; both are
	// idempotent on the provider side.
	var err error
	if t.IsDone() {
		err = e.provider.CompleteTask(ctx, externalID)
	} else {
		err = e.provider.ReopenTask(ctx, externalID)
	}
	if err != nil {
		p.res.recordError(PhasePush, t.ID, externalID, err)
		return
	}
	p.res.Pushed = append(p.res.Pushed, t.ID)
}

// reconcileDeletions removes local tasks whose previously-mapped external IDs
// vanished from the fetched remote set, then sweeps pending local deletions
// that the pull phase did not encounter. A failed fetch must not read as
// "everything was deleted remotely", so absences are only reconciled when the
// listing succeeded.
func (e *Engine) reconcileDeletions(ctx context.Context, p *pass) {
	if p.fetchOK {
		e.reconcileRemoteAbsences(p)
	}
	e.sweepPendingLocalDeletions(ctx, p)
}

// reconcileRemoteAbsences only consults mappings that existed before the pass
// started: a mapping added by this pass's push cannot be absent from a fetch
// that preceded it.
func (e *Engine) reconcileRemoteAbsences(p *pass) {
	for _, externalID := range p.preMapped {
		if p.fetchedSet[externalID] {
			continue
		}
		localID, ok := e.state.LocalID(externalID)
		if !ok {
			continue
		}

		local, exists := e.store.Get(localID)
		if !exists {
			// Gone on both sides; drop the bookkeeping.
			p.handledDeletes[localID] = true
			if !p.opts.DryRun {
				e.state.RemoveMappingByExternal(externalID)
				e.state.ClearDeletedLocally(localID)
			}
			continue
		}
		if local.ExternalSource != e.provider.Name() {
			continue
		}
		if e.state.IsDeletedLocally(localID) {
			// Deleted on both sides independently; nothing to push.
			p.handledDeletes[localID] = true
			if !p.opts.DryRun {
				e.state.ClearDeletedLocally(localID)
				e.state.RemoveMappingByExternal(externalID)
			}
			continue
		}

		if p.opts.DryRun {
			p.res.Deleted = append(p.res.Deleted, localID)
			continue
		}

		// Mark before mutating the store: if the local delete fails
		// mid-batch, the persisted marker makes the next pass retry.
		e.state.MarkDeletedRemotely(externalID)
		if e.store.RemoveSynced(localID) {
			p.res.Deleted = append(p.res.Deleted, localID)
		}
		e.state.RemoveMappingByExternal(externalID)
		e.state.ClearDeletedRemotely(externalID)
	}
}

func (e *Engine) sweepPendingLocalDeletions(ctx context.Context, p *pass) {
	for _, localID := range e.state.DeletedLocalIDs() {
		if p.handledDeletes[localID] {
			continue
		}
		externalID, ok := e.state.ExternalID(localID)
		if !ok {
			if !p.opts.DryRun {
				e.state.ClearDeletedLocally(localID)
			}
			continue
		}
		e.deleteRemote(ctx, p, localID, externalID)
	}
}

// finalize persists the sync state and flushes the store. Skipped entirely
// on dry runs, which must leave both files byte-identical.
func (e *Engine) finalize(p *pass) {
	if p.opts.DryRun {
		return
	}

	e.state.SetLastSync(e.provider.Name(), e.clock.Now())
	if err := e.state.Save(); err != nil {
		p.res.recordError(PhaseMap, "", "", err)
	}
	if err := e.store.Flush(); err != nil {
		p.res.recordError(PhaseMap, "", "", err)
	}
}

func (e *Engine) logInfo(category, msg string) {
	if e.logger != nil {
		e.logger.Info(e.provider.Name(), category, msg)
	}
}
