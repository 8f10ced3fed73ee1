package main

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrUnknownTarget is returned when a probe result references a target that
// was never registered with the engine. This indicates a caller bug: targets
// are fixed at startup and results can only originate from them.
var ErrUnknownTarget = errors.New("unknown target")

type bucketStore struct {
	second map[string]*Bucket
	minute map[string]*Bucket
	hour   map[string]*Bucket
}

func newBucketStore() *bucketStore {
	return &bucketStore{
		second: make(map[string]*Bucket),
		minute: make(map[string]*Bucket),
		hour:   make(map[string]*Bucket),
	}
}

// Engine owns every bucket store and is the single place probe results are
// folded into statistics. One goroutine (the ingester) writes through
// Ingest at up to ~1 kHz; any number of goroutines read through Snapshot,
// ExportView and RecentWindowStats. All shared state sits behind one mutex;
// readers hold it only long enough to copy counters out.
type Engine struct {
	mu           sync.Mutex
	targets      map[string]Target
	order        []string
	stores       map[string]*bucketStore
	lastResults  map[string]ProbeResult
	sessionStart time.Time
}

func NewEngine(targets []Target) *Engine {
	engine := &Engine{
		targets:      make(map[string]Target, len(targets)),
		order:        make([]string, 0, len(targets)),
		stores:       make(map[string]*bucketStore, len(targets)),
		lastResults:  make(map[string]ProbeResult, len(targets)),
		sessionStart: time.Now(),
	}
	for _, target := range targets {
		engine.targets[target.Name] = target
		engine.order = append(engine.order, target.Name)
		engine.stores[target.Name] = newBucketStore()
	}
	return engine
}

// SessionStart reports when this engine instance was created.
func (e *Engine) SessionStart() time.Time {
	return e.sessionStart
}

// Targets returns the monitored targets in configuration order.
func (e *Engine) Targets() []Target {
	targets := make([]Target, 0, len(e.order))
	for _, name := range e.order {
		targets = append(targets, e.targets[name])
	}
	return targets
}

// Ingest folds one probe result into the second, minute and hour buckets of
// its target and records it as the target's most recent result. It is the
// only mutating operation on engine state. Bucket creation is implicit;
// pairing with Evict keeps the second-resolution map bounded.
func (e *Engine) Ingest(result ProbeResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, ok := e.stores[result.Target]
	if !ok {
		return ErrUnknownTarget
	}

	// Keys are derived once and the maps are updated in place. This runs
	// up to a thousand times a second, so only a brand-new bucket may
	// allocate.
	observeInto(store.second, SecondKey(result.Timestamp), result)
	observeInto(store.minute, MinuteKey(result.Timestamp), result)
	observeInto(store.hour, HourKey(result.Timestamp), result)

	e.lastResults[result.Target] = result
	return nil
}

func observeInto(buckets map[string]*Bucket, key string, result ProbeResult) {
	bucket, ok := buckets[key]
	if !ok {
		bucket = &Bucket{}
		buckets[key] = bucket
	}
	bucket.observe(result)
}

// RecentWindowStats sums the newest windowSeconds second-buckets of the
// target. The processor uses it to judge whether a target is currently
// degraded without scanning the whole retention window.
func (e *Engine) RecentWindowStats(target string, windowSeconds int) (BucketStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, ok := e.stores[target]
	if !ok {
		return BucketStats{}, ErrUnknownTarget
	}

	keys := sortedKeys(store.second)
	if len(keys) > windowSeconds {
		keys = keys[len(keys)-windowSeconds:]
	}

	var window BucketStats
	for _, key := range keys {
		window = window.add(store.second[key].stats())
	}
	return window, nil
}

// targetView is a consistent copy of one target's state, safe to read
// without holding the engine lock.
type targetView struct {
	target     Target
	second     map[string]BucketStats
	minute     map[string]BucketStats
	hour       map[string]BucketStats
	lastResult ProbeResult
	hasResult  bool
}

// view copies all per-bucket counters out under the lock. The raw RTT
// slices are reduced to sum and count, keeping the copy cheap even with
// thousands of live buckets.
func (e *Engine) view() []targetView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]targetView, 0, len(e.order))
	for _, name := range e.order {
		store := e.stores[name]
		view := targetView{
			target: e.targets[name],
			second: copyStats(store.second),
			minute: copyStats(store.minute),
			hour:   copyStats(store.hour),
		}
		if last, ok := e.lastResults[name]; ok {
			view.lastResult = last
			view.hasResult = true
		}
		views = append(views, view)
	}
	return views
}

// ExportView returns, per target, the bucket statistics of every resolution
// for file exporters and chart rendering.
func (e *Engine) ExportView() map[string]map[Resolution]map[string]BucketStats {
	views := e.view()
	exported := make(map[string]map[Resolution]map[string]BucketStats, len(views))
	for _, view := range views {
		exported[view.target.Name] = map[Resolution]map[string]BucketStats{
			ResolutionSecond: view.second,
			ResolutionMinute: view.minute,
			ResolutionHour:   view.hour,
		}
	}
	return exported
}

func copyStats(buckets map[string]*Bucket) map[string]BucketStats {
	stats := make(map[string]BucketStats, len(buckets))
	for key, bucket := range buckets {
		stats[key] = bucket.stats()
	}
	return stats
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
