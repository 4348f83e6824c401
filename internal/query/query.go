// Package query sits between screens and the REST client. It keys list
// requests by resource and canonical query string, shares one HTTP call
// between identical in-flight requests, cancels requests a slot no longer
// wants, and tags every result with a per-slot sequence so late responses
// can be recognised and dropped.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/database/repository"
)

// Fetcher performs one list call.
type Fetcher[T any] func(ctx context.Context, resource string, q url.Values) (*api.Page[T], error)

// Store persists pages across runs. *repository.PageCacheRepo satisfies it.
type Store interface {
	Put(ctx context.Context, p repository.CachedPage) error
	Get(ctx context.Context, key string) (*repository.CachedPage, error)
	DeleteResource(ctx context.Context, resource string) (int64, error)
}

// Request identifies one list fetch. Slot names the consumer (one table
// or dropdown); a newer request on the same slot supersedes older ones.
type Request struct {
	Slot     string
	Resource string
	Query    url.Values
}

// Key is the canonical cache and dedup key. url.Values.Encode sorts by
// parameter name, so map iteration order never leaks into it.
func (r Request) Key() string {
	return Key(r.Resource, r.Query)
}

// Key builds the canonical key for resource and query.
func Key(resource string, q url.Values) string {
	return strings.Trim(resource, "/") + "?" + q.Encode()
}

// Result is delivered for every issued request.
type Result[T any] struct {
	Slot      string
	Seq       uint64
	Key       string
	Page      *api.Page[T]
	Err       error
	Cached    bool
	Stale     bool
	FetchedAt time.Time
}

// Canceled reports whether the request was superseded or shut down.
func (r Result[T]) Canceled() bool {
	return errors.Is(r.Err, context.Canceled)
}

type call[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	refs   int
	page   *api.Page[T]
	err    error
	at     time.Time

	// detached calls were overtaken by a mutation: they still answer
	// their waiters but never write the caches.
	detached bool
}

type slot struct {
	seq     uint64
	key     string
	release func()
}

type entry[T any] struct {
	page *api.Page[T]
	at   time.Time
}

// Client coordinates list fetches for rows of type T.
type Client[T any] struct {
	fetch  Fetcher[T]
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	slots    map[string]*slot
	inflight map[string]*call[T]
	memory   map[string]entry[T]
	calls    int
}

// Option configures a Client.
type Option[T any] func(*Client[T])

// WithStore enables the persistent page cache.
func WithStore[T any](s Store) Option[T] {
	return func(c *Client[T]) { c.store = s }
}

// WithTTL sets how long a cached page counts as fresh.
func WithTTL[T any](d time.Duration) Option[T] {
	return func(c *Client[T]) { c.ttl = d }
}

// WithLogger sets the logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(c *Client[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Client[T]) { c.now = now }
}

// New builds a Client around fetch.
func New[T any](fetch Fetcher[T], opts ...Option[T]) *Client[T] {
	base, stop := context.WithCancel(context.Background())
	c := &Client[T]{
		fetch:    fetch,
		ttl:      5 * time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
		base:     base,
		stop:     stop,
		slots:    map[string]*slot{},
		inflight: map[string]*call[T]{},
		memory:   map[string]entry[T]{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue registers req as the latest request of its slot and starts (or
// joins) the fetch. The returned wait func blocks until the fetch ends;
// it is meant to run inside a tea.Cmd.
func (c *Client[T]) Issue(req Request) (uint64, func() Result[T]) {
	key := req.Key()

	c.mu.Lock()
	st := c.slots[req.Slot]
	if st == nil {
		st = &slot{}
		c.slots[req.Slot] = st
	}
	st.seq++
	seq := st.seq

	cl, release := c.acquire(key, req)
	if st.release != nil {
		st.release()
	}
	st.key = key
	st.release = release
	c.mu.Unlock()

	wait := func() Result[T] {
		<-cl.done
		return Result[T]{
			Slot:      req.Slot,
			Seq:       seq,
			Key:       key,
			Page:      cl.page,
			Err:       cl.err,
			FetchedAt: cl.at,
		}
	}
	return seq, wait
}

// acquire joins the in-flight call for key or starts a new one. c.mu held.
func (c *Client[T]) acquire(key string, req Request) (*call[T], func()) {
	cl, ok := c.inflight[key]
	if !ok {
		ctx, cancel := context.WithCancel(c.base)
		cl = &call[T]{done: make(chan struct{}), cancel: cancel}
		c.inflight[key] = cl
		c.calls++
		go c.run(ctx, key, req, cl)
	}
	cl.refs++

	var once sync.Once
	release := func() {
		once.Do(func() {
			cl.refs--
			if cl.refs > 0 {
				return
			}
			select {
			case <-cl.done:
			default:
				if c.inflight[key] == cl {
					delete(c.inflight, key)
				}
				cl.cancel()
			}
		})
	}
	return cl, release
}

func (c *Client[T]) run(ctx context.Context, key string, req Request, cl *call[T]) {
	page, err := c.fetch(ctx, req.Resource, req.Query)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && page == nil {
		page = &api.Page[T]{}
	}
	if err == nil {
		if size, perr := strconv.Atoi(req.Query.Get("page_size")); perr == nil {
			if cerr := page.Check(size); cerr != nil {
				c.logger.Warn("backend page violates page size", "resource", req.Resource, "err", cerr)
			}
		}
	}
	at := c.now()

	c.mu.Lock()
	cl.page, cl.err, cl.at = page, err, at
	if c.inflight[key] == cl {
		delete(c.inflight, key)
	}
	keep := err == nil && !cl.detached
	if keep {
		c.memory[key] = entry[T]{page: page, at: at}
	}
	c.mu.Unlock()
	cl.cancel()
	close(cl.done)

	if keep && c.store != nil {
		c.persist(key, req.Resource, page, at)
	}
}

func (c *Client[T]) persist(key, resource string, page *api.Page[T], at time.Time) {
	results, err := json.Marshal(page.Results)
	if err != nil {
		c.logger.Debug("page cache encode failed", "key", key, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = c.store.Put(ctx, repository.CachedPage{
		Key:       key,
		Resource:  strings.Trim(resource, "/"),
		Count:     page.Count,
		Next:      page.Next,
		Previous:  page.Previous,
		Results:   results,
		FetchedAt: at,
	})
	if err != nil {
		c.logger.Debug("page cache write failed", "key", key, "err", err)
	}
}

// Current reports whether seq is still the latest request of slot.
func (c *Client[T]) Current(slotName string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.slots[slotName]
	return st != nil && st.seq == seq
}

// Accept is Current for a delivered result.
func (c *Client[T]) Accept(r Result[T]) bool {
	return c.Current(r.Slot, r.Seq)
}

// Cached returns the last known page for req, from memory or the store.
// Stale is set when the page is older than the TTL.
func (c *Client[T]) Cached(ctx context.Context, req Request) (Result[T], bool) {
	key := req.Key()
	c.mu.Lock()
	e, ok := c.memory[key]
	c.mu.Unlock()

	if !ok && c.store != nil {
		cp, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Debug("page cache read failed", "key", key, "err", err)
		}
		if cp != nil {
			var rows []T
			if err := json.Unmarshal(cp.Results, &rows); err == nil {
				e = entry[T]{
					page: &api.Page[T]{Count: cp.Count, Next: cp.Next, Previous: cp.Previous, Results: rows},
					at:   cp.FetchedAt,
				}
				ok = true
				c.mu.Lock()
				if _, exists := c.memory[key]; !exists {
					c.memory[key] = e
				}
				c.mu.Unlock()
			}
		}
	}
	if !ok {
		return Result[T]{}, false
	}
	return Result[T]{
		Slot:      req.Slot,
		Key:       key,
		Page:      e.page,
		Cached:    true,
		Stale:     c.ttl > 0 && c.now().Sub(e.at) > c.ttl,
		FetchedAt: e.at,
	}, true
}

// Invalidate forgets every cached page of resource. Called after mutations.
// Calls already in flight for resource are detached, so the next Issue
// starts a fresh fetch instead of joining one that began before the
// mutation.
func (c *Client[T]) Invalidate(ctx context.Context, resource string) {
	prefix := strings.Trim(resource, "/") + "?"
	c.mu.Lock()
	for key := range c.memory {
		if strings.HasPrefix(key, prefix) {
			delete(c.memory, key)
		}
	}
	for key, cl := range c.inflight {
		if strings.HasPrefix(key, prefix) {
			cl.detached = true
			delete(c.inflight, key)
		}
	}
	c.mu.Unlock()
	if c.store != nil {
		if _, err := c.store.DeleteResource(ctx, strings.Trim(resource, "/")); err != nil {
			c.logger.Debug("page cache invalidate failed", "resource", resource, "err", err)
		}
	}
}

// Forget drops a slot, cancelling its in-flight request if nobody else
// shares it.
func (c *Client[T]) Forget(slotName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.slots[slotName]; st != nil {
		st.seq++
		if st.release != nil {
			st.release()
			st.release = nil
		}
	}
}

// Calls reports how many backend calls were started.
func (c *Client[T]) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Close cancels everything in flight.
func (c *Client[T]) Close() {
	c.logger.Debug("query client closed", "calls", c.Calls())
	c.stop()
}
