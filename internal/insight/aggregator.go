package insight

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tattva/tattva/internal/bus"
	"github.com/tattva/tattva/internal/correlation"
	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// Defaults applied when Options leaves them unset.
const (
	DefaultRadiusKm = 50.0
	DefaultTopN     = 10
	DefaultMaxTopN  = 100
)

// Store is the read side of the observation store the aggregator needs.
type Store interface {
	TopGroups(ctx context.Context, region *observation.Region, limit int) ([]observation.GroupCount, error)
	CovariateMeans(ctx context.Context, region *observation.Region) (*observation.CovariateSummary, error)
	GroupName(ctx context.Context, id int64) (string, bool, error)
}

// FindingSource supplies the current correlation finding.
type FindingSource interface {
	FindBest(ctx context.Context) (correlation.Finding, error)
}

// MetricsRecorder receives snapshot build measurements.
type MetricsRecorder interface {
	RecordContextBuild(latency time.Duration, degraded bool)
}

// Options configures an Aggregator.
type Options struct {
	// Covariates names the summary keys of an empty snapshot.
	Covariates      []string
	DefaultRadiusKm float64
	DefaultTopN     int
	MaxTopN         int
	Bus             bus.Bus
	Metrics         MetricsRecorder
	Logger          *logger.Logger
}

// ContextBuiltEvent is published after each snapshot.
type ContextBuiltEvent struct {
	Species    int   `json:"species"`
	Sightings  int64 `json:"sightings"`
	HasFinding bool  `json:"has_finding"`
	Degraded   bool  `json:"degraded"`
}

// Aggregator builds context snapshots.
type Aggregator struct {
	store      Store
	finder     FindingSource
	covariates []string
	radiusKm   float64
	topN       int
	maxTopN    int
	bus        bus.Bus
	metrics    MetricsRecorder
	log        *logger.Logger
}

// NewAggregator creates an Aggregator over store and finder.
func NewAggregator(store Store, finder FindingSource, opts Options) *Aggregator {
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = DefaultRadiusKm
	}
	if opts.MaxTopN <= 0 {
		opts.MaxTopN = DefaultMaxTopN
	}
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = DefaultTopN
	}
	if opts.DefaultTopN > opts.MaxTopN {
		opts.DefaultTopN = opts.MaxTopN
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	return &Aggregator{
		store:      store,
		finder:     finder,
		covariates: append([]string(nil), opts.Covariates...),
		radiusKm:   opts.DefaultRadiusKm,
		topN:       opts.DefaultTopN,
		maxTopN:    opts.MaxTopN,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		log:        opts.Logger.WithComponent("insight"),
	}
}

// BuildContext assembles a snapshot for req. It never fails: any store error,
// including a failed species name lookup, or an invalid request yields the
// empty snapshot. A finder error yields an empty finding inside an otherwise
// complete snapshot.
func (a *Aggregator) BuildContext(ctx context.Context, req Request) Snapshot {
	start := time.Now()
	log := a.log.WithContext(ctx)

	snap, err := a.build(ctx, req)
	degraded := err != nil
	if degraded {
		log.Error("Context build failed, returning empty snapshot", "error", err)
		snap = emptySnapshot(a.covariates)
	}

	if a.metrics != nil {
		a.metrics.RecordContextBuild(time.Since(start), degraded)
	}
	a.publish(ctx, snap, degraded)
	return snap
}

func (a *Aggregator) build(ctx context.Context, req Request) (Snapshot, error) {
	if err := req.Validate(); err != nil {
		return Snapshot{}, err
	}
	region := a.region(req.Region)
	limit := a.limit(req.TopN)

	var (
		top     []observation.GroupCount
		summary *observation.CovariateSummary
		finding correlation.Finding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		top, err = a.store.TopGroups(gctx, region, limit)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = a.store.CovariateMeans(gctx, region)
		return err
	})
	g.Go(func() error {
		finding = a.currentFinding(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		TopSpecies: top,
		EnvSummary: summarize(summary),
		XFactor:    XFactor{Finding: finding},
	}
	if snap.TopSpecies == nil {
		snap.TopSpecies = []observation.GroupCount{}
	}
	if !finding.IsEmpty() {
		name, err := a.speciesName(ctx, *finding.GroupID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.XFactor.SpeciesName = name
	}
	return snap, nil
}

func (a *Aggregator) region(r *observation.Region) *observation.Region {
	if r == nil {
		return nil
	}
	scoped := *r
	if scoped.RadiusKm == 0 {
		scoped.RadiusKm = a.radiusKm
	}
	return &scoped
}

func (a *Aggregator) limit(n int) int {
	switch {
	case n <= 0:
		return a.topN
	case n > a.maxTopN:
		return a.maxTopN
	default:
		return n
	}
}

func (a *Aggregator) currentFinding(ctx context.Context) correlation.Finding {
	if a.finder == nil {
		return correlation.Finding{}
	}
	f, err := a.finder.FindBest(ctx)
	if err != nil {
		a.log.WithContext(ctx).Warn("Finder failed, snapshot carries no finding", "error", err)
		return correlation.Finding{}
	}
	return f
}

// speciesName resolves the display name. An unknown species has no name and
// is not an error.
func (a *Aggregator) speciesName(ctx context.Context, id int64) (*string, error) {
	name, ok, err := a.store.GroupName(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up species %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &name, nil
}

func summarize(s *observation.CovariateSummary) EnvSummary {
	env := EnvSummary{
		Covariates: s.Covariates,
		Means:      make(map[string]*float64, len(s.Covariates)),
		Count:      s.Count,
	}
	for i, name := range s.Covariates {
		if i < len(s.Means) {
			env.Means[name] = s.Means[i]
		}
	}
	return env
}

func (a *Aggregator) publish(ctx context.Context, snap Snapshot, degraded bool) {
	if a.bus == nil {
		return
	}

	event := bus.NewEvent(bus.TopicContextBuilt, "insight", ContextBuiltEvent{
		Species:    len(snap.TopSpecies),
		Sightings:  snap.EnvSummary.Count,
		HasFinding: !snap.XFactor.IsEmpty(),
		Degraded:   degraded,
	})
	if id, ok := logger.RequestID(ctx); ok {
		event.RequestID = id
	}
	if err := a.bus.Publish(ctx, bus.TopicContextBuilt, event); err != nil {
		a.log.WithContext(ctx).Warn("Failed to publish context event", "error", err)
	}
}
