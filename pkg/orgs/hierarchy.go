package orgs

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/taskhive/taskhive/pkg/observability"
)

const defaultClosureCacheSize = 512

// Closure is an organization plus all of its transitive descendants
type Closure map[string]struct{}

// Contains reports whether the organization is part of the closure
func (c Closure) Contains(orgID string) bool {
	_, ok := c[orgID]
	return ok
}

// IDs returns the closure members as a slice, root first is not guaranteed
func (c Closure) IDs() []string {
	out := make([]string, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	return out
}

func closureOf(ids []string) Closure {
	c := make(Closure, len(ids))
	for _, id := range ids {
		c[id] = struct{}{}
	}
	return c
}

// Resolver computes descendant closures over the organization parent-link
// graph. Closures are cached per root and must be invalidated on any
// organization write (see Service).
type Resolver struct {
	store   Store
	cache   *lru.Cache[string, []string]
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver creates a hierarchy resolver with an LRU closure cache
func NewResolver(store Store, logger *observability.Logger, metrics *observability.Metrics) (*Resolver, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	cache, err := lru.New[string, []string](defaultClosureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create closure cache: %w", err)
	}
	return &Resolver{store: store, cache: cache, logger: logger, metrics: metrics}, nil
}

// DescendantClosure returns the set holding rootID plus every transitive
// descendant. An unknown rootID yields the singleton {rootID}; callers
// must not take membership as proof of existence.
func (r *Resolver) DescendantClosure(ctx context.Context, rootID string) (Closure, error) {
	if ids, ok := r.cache.Get(rootID); ok {
		if r.metrics != nil {
			r.metrics.ClosureCacheHitsTotal.Inc()
		}
		return closureOf(ids), nil
	}
	if r.metrics != nil {
		r.metrics.ClosureCacheMissesTotal.Inc()
	}

	all, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load organizations: %w", err)
	}

	ids := traverse(rootID, all, r.logger)
	r.cache.Add(rootID, ids)
	return closureOf(ids), nil
}

// traverse walks the parent-link graph from rootID with an explicit stack.
// The visited set makes the walk terminate even if the stored graph has a
// cycle; a cycle is logged and the offending edge ignored.
func traverse(rootID string, all []Organization, logger *observability.Logger) []string {
	children := make(map[string][]string, len(all))
	for _, org := range all {
		if org.ParentID == "" {
			continue
		}
		children[org.ParentID] = append(children[org.ParentID], org.ID)
	}

	ids := []string{rootID}
	visited := map[string]bool{rootID: true}
	stack := []string{rootID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range children[current] {
			if visited[child] {
				logger.WithFields(map[string]interface{}{
					"org_id":    child,
					"parent_id": current,
				}).Warn("cycle detected in organization hierarchy, ignoring edge")
				continue
			}
			visited[child] = true
			ids = append(ids, child)
			stack = append(stack, child)
		}
	}
	return ids
}

// Invalidate drops every cached closure. Any organization write can change
// an arbitrary set of closures, so the whole cache goes.
func (r *Resolver) Invalidate() {
	r.cache.Purge()
}
