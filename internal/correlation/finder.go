package correlation

import (
	"context"
	"time"

	"github.com/tattva/tattva/internal/bus"
	"github.com/tattva/tattva/internal/cache"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// Defaults for the result cache entry.
const (
	DefaultCacheKey = "tattva:correlation:latest"
	DefaultCacheTTL = 600 * time.Second
)

// Result sources reported to metrics.
const (
	SourceCache    = "cache"
	SourceComputed = "computed"
	SourceError    = "error"
)

// FinderOptions configures a Finder. Zero values select the defaults; a nil
// Cache disables caching and a nil Bus disables event publication.
type FinderOptions struct {
	CacheKey string
	CacheTTL time.Duration
	Policy   *Policy
	Cache    cache.Cache
	Bus      bus.Bus
	Metrics  MetricsRecorder
	Logger   *logger.Logger
}

// Finder serves the latest finding through a single-key result cache.
// Cache failures never fail a request; computation failures always do.
type Finder struct {
	computer Computer
	policy   *Policy
	cache    cache.Cache
	key      string
	ttl      time.Duration
	bus      bus.Bus
	metrics  MetricsRecorder
	log      *logger.Logger
}

// NewFinder creates a Finder that computes with computer.
func NewFinder(computer Computer, opts FinderOptions) *Finder {
	if opts.CacheKey == "" {
		opts.CacheKey = DefaultCacheKey
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Metrics == nil {
		opts.Metrics = noopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	log := opts.Logger.WithComponent("finder")
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy()
	}
	if opts.Policy.Metrics == nil {
		opts.Policy.Metrics = opts.Metrics
	}
	if opts.Policy.Log == nil {
		opts.Policy.Log = opts.Logger.WithComponent("policy")
	}

	return &Finder{
		computer: computer,
		policy:   opts.Policy,
		cache:    opts.Cache,
		key:      opts.CacheKey,
		ttl:      opts.CacheTTL,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		log:      log,
	}
}

// FindBest returns the cached finding when one is live, otherwise runs the
// threshold search, caches the result (empty findings included) and returns it.
func (f *Finder) FindBest(ctx context.Context) (Finding, error) {
	if finding, ok := f.readCache(ctx); ok {
		f.metrics.RecordFinderRequest(SourceCache)
		return finding, nil
	}
	return f.compute(ctx)
}

// Refresh runs the threshold search without consulting the cache and
// overwrites the cached entry with the result.
func (f *Finder) Refresh(ctx context.Context) (Finding, error) {
	return f.compute(ctx)
}

func (f *Finder) compute(ctx context.Context) (Finding, error) {
	finding, err := f.policy.Run(ctx, f.computer)
	if err != nil {
		f.metrics.RecordFinderRequest(SourceError)
		return Finding{}, err
	}
	f.metrics.RecordFinderRequest(SourceComputed)

	f.writeCache(ctx, finding)
	f.publish(ctx, finding)
	return finding, nil
}

// readCache reports a hit only for a live, decodable, valid entry. Every
// failure is logged and treated as a miss.
func (f *Finder) readCache(ctx context.Context) (Finding, bool) {
	if f.cache == nil {
		return Finding{}, false
	}
	log := f.log.WithContext(ctx)

	data, ok, err := f.cache.Get(ctx, f.key)
	if err != nil {
		f.metrics.RecordCacheOp("get", "error")
		log.Warn("Cache read failed, computing", "key", f.key, "error", err)
		return Finding{}, false
	}
	if !ok {
		f.metrics.RecordCacheOp("get", "miss")
		return Finding{}, false
	}

	finding, err := decodeFinding(data)
	if err != nil {
		f.metrics.RecordCacheOp("get", "decode_error")
		log.Warn("Discarding undecodable cache entry", "key", f.key, "error", err)
		return Finding{}, false
	}

	f.metrics.RecordCacheOp("get", "hit")
	return finding, true
}

func (f *Finder) writeCache(ctx context.Context, finding Finding) {
	if f.cache == nil {
		return
	}
	log := f.log.WithContext(ctx)

	data, err := encodeFinding(finding)
	if err != nil {
		f.metrics.RecordCacheOp("set", "error")
		log.Warn("Failed to encode finding for cache", "error", err)
		return
	}
	if err := f.cache.Set(ctx, f.key, data, f.ttl); err != nil {
		f.metrics.RecordCacheOp("set", "error")
		log.Warn("Cache write failed", "key", f.key, "error", err)
		return
	}
	f.metrics.RecordCacheOp("set", "ok")
}

func (f *Finder) publish(ctx context.Context, finding Finding) {
	if f.bus == nil {
		return
	}

	event := bus.NewEvent(bus.TopicFindingComputed, "correlation", finding)
	if id, ok := logger.RequestID(ctx); ok {
		event.RequestID = id
	}
	if err := f.bus.Publish(ctx, bus.TopicFindingComputed, event); err != nil {
		f.log.WithContext(ctx).Warn("Failed to publish finding event", "error", err)
	}
}
