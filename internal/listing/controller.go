// Package listing keeps paginated list views consistent across page changes,
// deletes and saves.
package listing

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/odyssey-erp/company-manager/internal/shared"
)

// MaxLimit caps the page size a request may ask for.
const MaxLimit = 100

// Fetcher loads one page from the backend.
type Fetcher[T any] func(ctx context.Context, page, limit int) ([]T, shared.Pagination, error)

// Request describes a page-change event. Zero fields mean "keep current".
type Request struct {
	Page  int
	Limit int
}

// Snapshot is what a list view renders.
type Snapshot[T any] struct {
	Items      []T
	Pagination shared.Pagination
	// Err is the fetch failure, if any. Items then hold the last committed
	// page, or nothing on first load.
	Err        error
	Stale      bool
	Superseded bool
	Loaded     bool
}

// Message returns the inline alert text for a failed fetch.
func (s Snapshot[T]) Message() string {
	return shared.UserSafeMessage(s.Err)
}

// Empty reports whether there is nothing to list.
func (s Snapshot[T]) Empty() bool {
	return len(s.Items) == 0
}

// Controller drives one list view of one session.
type Controller[T any] struct {
	store        Store
	key          string
	defaultLimit int
	fetch        Fetcher[T]
	logger       *slog.Logger
}

// Key derives the store key for a session's view.
func Key(sessionID, view string) string {
	return "listing:" + sessionID + ":" + view
}

// New constructs a Controller.
func New[T any](store Store, key string, defaultLimit int, fetch Fetcher[T], logger *slog.Logger) *Controller[T] {
	if defaultLimit <= 0 {
		defaultLimit = shared.DefaultPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller[T]{store: store, key: key, defaultLimit: defaultLimit, fetch: fetch, logger: logger}
}

// Show fetches the page selected by req and commits it unless a newer
// request for the same view has started meanwhile. The returned error is
// reserved for store failures; backend failures are reported in Snapshot.Err.
func (c *Controller[T]) Show(ctx context.Context, req Request) (Snapshot[T], error) {
	st, err := c.store.Load(ctx, c.key)
	if err != nil {
		return Snapshot[T]{}, err
	}
	ticket, err := c.store.Begin(ctx, c.key)
	if err != nil {
		return Snapshot[T]{}, err
	}

	page, limit := c.target(st, req)
	items, pag, err := c.fetch(ctx, page, limit)
	if err == nil && pag.TotalPages > 0 && page > pag.TotalPages {
		// The listing shrank behind our back; show its last page instead.
		page = pag.TotalPages
		items, pag, err = c.fetch(ctx, page, limit)
	}
	if err == nil && pag.TotalPages == 0 {
		// An empty listing has exactly one page.
		page = 1
	}
	if err != nil {
		c.logger.Warn("list fetch failed", slog.String("view", c.key), slog.Int("page", page), slog.Any("error", err))
		snap := c.fromState(st)
		snap.Err = err
		snap.Stale = st.Loaded
		if !st.Loaded {
			empty := shared.NewPagination(1, limit, 0)
			snap.Pagination = shared.NewPagination(empty.Clamp(page), limit, 0)
		}
		return snap, nil
	}

	next := State{Pagination: shared.NewPagination(page, limit, pag.Total), Loaded: true}
	if next.Items, err = json.Marshal(items); err != nil {
		return Snapshot[T]{}, err
	}
	ok, err := c.store.Commit(ctx, c.key, ticket, next)
	if err != nil {
		return Snapshot[T]{}, err
	}
	if !ok {
		c.logger.Debug("discarding superseded list response", slog.String("view", c.key), slog.Int("page", page))
		latest, err := c.store.Load(ctx, c.key)
		if err != nil {
			return Snapshot[T]{}, err
		}
		snap := c.fromState(latest)
		snap.Superseded = true
		return snap, nil
	}
	return Snapshot[T]{Items: items, Pagination: next.Pagination, Loaded: true}, nil
}

// AfterDelete records that one item on the current page was removed and
// returns the page the view should show next.
func (c *Controller[T]) AfterDelete(ctx context.Context) (int, error) {
	st, err := c.store.Load(ctx, c.key)
	if err != nil {
		return 1, err
	}
	if !st.Loaded {
		return 1, nil
	}
	ticket, err := c.store.Begin(ctx, c.key)
	if err != nil {
		return 1, err
	}
	st.Pagination = st.Pagination.AfterDelete()
	ok, err := c.store.Commit(ctx, c.key, ticket, st)
	if err != nil {
		return 1, err
	}
	if !ok {
		// A newer request owns the view; the redirect's fetch settles the page.
		c.logger.Debug("discarding superseded delete bookkeeping", slog.String("view", c.key), slog.Int("page", st.Pagination.Page))
	}
	return st.Pagination.Page, nil
}

// AfterSave moves the view back to page 1 after a create or update.
func (c *Controller[T]) AfterSave(ctx context.Context) error {
	st, err := c.store.Load(ctx, c.key)
	if err != nil {
		return err
	}
	ticket, err := c.store.Begin(ctx, c.key)
	if err != nil {
		return err
	}
	if st.Loaded {
		st.Pagination.Page = 1
	} else {
		st.Pagination = shared.NewPagination(1, c.defaultLimit, 0)
	}
	_, err = c.store.Commit(ctx, c.key, ticket, st)
	return err
}

// Current returns the committed pagination without fetching.
func (c *Controller[T]) Current(ctx context.Context) (shared.Pagination, error) {
	st, err := c.store.Load(ctx, c.key)
	if err != nil {
		return shared.Pagination{}, err
	}
	if !st.Loaded {
		return shared.NewPagination(1, c.defaultLimit, 0), nil
	}
	return st.Pagination, nil
}

func (c *Controller[T]) target(st State, req Request) (page, limit int) {
	current := st.Pagination
	if !st.Loaded {
		current = shared.NewPagination(1, c.defaultLimit, 0)
	}
	if current.PerPage <= 0 {
		current = shared.NewPagination(current.Page, c.defaultLimit, current.Total)
	}
	limit = current.PerPage
	page = current.Page
	if req.Limit > 0 {
		requested := req.Limit
		if requested > MaxLimit {
			requested = MaxLimit
		}
		if requested != limit {
			limit = requested
			page = 1
		}
	}
	if page < 1 {
		page = 1
	}
	if req.Page > 0 {
		page = req.Page
		if st.Loaded {
			page = shared.NewPagination(1, limit, current.Total).Clamp(req.Page)
		}
	}
	return page, limit
}

func (c *Controller[T]) fromState(st State) Snapshot[T] {
	snap := Snapshot[T]{Pagination: st.Pagination, Loaded: st.Loaded}
	if !st.Loaded {
		snap.Pagination = shared.NewPagination(1, c.defaultLimit, 0)
		return snap
	}
	if len(st.Items) > 0 {
		if err := json.Unmarshal(st.Items, &snap.Items); err != nil {
			c.logger.Warn("decode committed list items", slog.String("view", c.key), slog.Any("error", err))
			snap.Items = nil
		}
	}
	return snap
}

// Committed returns the last committed page without fetching. Modal
// renders use it so that showing or rejecting a form costs no backend call.
func (c *Controller[T]) Committed(ctx context.Context) (Snapshot[T], error) {
	st, err := c.store.Load(ctx, c.key)
	if err != nil {
		return c.fromState(State{}), err
	}
	return c.fromState(st), nil
}
