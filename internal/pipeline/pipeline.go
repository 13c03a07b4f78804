// Package pipeline orchestrates a scoring run: assemble candidates, fan the
// screening and assessment work out across workers, then rank behind a sort
// barrier. A run is single-pass; identical inputs and configuration produce
// byte-identical output.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/bess-site-scout/internal/assemble"
	"github.com/couchcryptid/bess-site-scout/internal/assess"
	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/observability"
	"github.com/couchcryptid/bess-site-scout/internal/score"
	"github.com/couchcryptid/bess-site-scout/internal/screen"
)

// Pipeline runs the assemble-screen-assess-score-rank sequence.
type Pipeline struct {
	scoring config.Scoring
	logger  *slog.Logger
	metrics *observability.Metrics
	workers int
	ready   atomic.Bool
}

// New creates a Pipeline. workers <= 0 means one worker per CPU.
func New(scoring config.Scoring, logger *slog.Logger, metrics *observability.Metrics, workers int) *Pipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{
		scoring: scoring,
		logger:  logger,
		metrics: metrics,
		workers: workers,
	}
}

// Counters are the per-run tallies surfaced in logs, metrics, and export
// metadata.
type Counters struct {
	QualifyingNodes   int
	Candidates        int
	Ranked            int
	Eliminated        int
	SkippedGeometries int
	DataGaps          map[string]int
}

// Result is the outcome of one scoring run.
type Result struct {
	Ranked     []*domain.CandidateSite
	Eliminated []*domain.CandidateSite
	Counters   Counters
	Duration   time.Duration
}

// CheckReadiness returns nil once at least one run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no scoring run has completed yet")
	}
	return nil
}

// Run executes one scoring run over the given datasets. The context is
// checked between candidates; cancellation abandons the run with an error
// rather than emitting partial rankings.
func (p *Pipeline) Run(ctx context.Context, data domain.Datasets) (*Result, error) {
	start := time.Now()
	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)

	assembler := assemble.New(p.scoring.Assembly, p.logger)
	asm := assembler.Assemble(data.GridNodes, data.Parcels)

	screenData := screen.NewDatasets(data.FloodZones, data.Contamination, data.Habitats)
	assessData := assess.NewDatasets(data.Generation, data.Solar)

	skipped := asm.SkippedGeometries + screenData.SkippedGeometries() + assessData.SkippedGeometries()
	p.metrics.CandidatesAssembled.Add(float64(len(asm.Candidates)))
	p.metrics.GeometrySkips.Add(float64(skipped))

	if err := p.scoreAll(ctx, asm.Candidates, screenData, assessData); err != nil {
		return nil, err
	}

	ranked, eliminated := score.Rank(asm.Candidates)

	counters := Counters{
		QualifyingNodes:   asm.QualifyingNodes,
		Candidates:        len(asm.Candidates),
		Ranked:            len(ranked),
		Eliminated:        len(eliminated),
		SkippedGeometries: skipped,
		DataGaps:          gapCounts(asm.Candidates),
	}
	p.metrics.CandidatesScored.Add(float64(counters.Candidates))
	p.metrics.CandidatesEliminated.Add(float64(counters.Eliminated))
	for source, n := range counters.DataGaps {
		p.metrics.DataGaps.WithLabelValues(source).Add(float64(n))
	}

	dur := time.Since(start)
	p.metrics.ScoringDuration.Observe(dur.Seconds())
	p.ready.Store(true)

	p.logger.Info("scoring run complete",
		"qualifying_nodes", counters.QualifyingNodes,
		"candidates", counters.Candidates,
		"ranked", counters.Ranked,
		"eliminated", counters.Eliminated,
		"skipped_geometries", counters.SkippedGeometries,
		"duration", dur,
	)

	return &Result{
		Ranked:     ranked,
		Eliminated: eliminated,
		Counters:   counters,
		Duration:   dur,
	}, nil
}

// scoreAll fans candidates out to the worker pool. Each worker owns the
// indexes it pulls, writing results into the shared slice without locks; the
// wait acts as the sort barrier, so ranking only ever sees fully scored
// candidates.
func (p *Pipeline) scoreAll(ctx context.Context, candidates []*domain.CandidateSite, screenData *screen.Datasets, assessData *assess.Datasets) error {
	screener := screen.New(p.scoring.Screening, p.scoring.Criteria, p.logger)
	assessor := assess.New(p.scoring.Assessment, p.logger)
	scorer := score.New(p.scoring.Weights, p.scoring.Composite)

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(candidates) || ctx.Err() != nil {
					return
				}
				p.scoreOne(candidates[i], screener, assessor, scorer, screenData, assessData)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) scoreOne(c *domain.CandidateSite, screener *screen.Screener, assessor *assess.Assessor, scorer *score.Scorer, screenData *screen.Datasets, assessData *assess.Datasets) {
	screening := screener.Screen(c, screenData)
	c.Screening = &screening

	grid := assessor.Assess(c, assessData)
	c.Grid = &grid

	c.Eliminate = screening.Eliminate
	c.RiskFlags = append(append([]string{}, screening.RiskFlags...), grid.RiskFlags...)
	c.ScoredAt = domain.Now()

	scorer.Score(c)
}

// gapCounts aggregates per-source data-gap counts after the barrier, keeping
// metric arithmetic out of the concurrent section.
func gapCounts(candidates []*domain.CandidateSite) map[string]int {
	gaps := make(map[string]int)
	for _, c := range candidates {
		if c.Screening != nil {
			for _, source := range c.Screening.DataGaps {
				gaps[source]++
			}
		}
		if c.Grid != nil {
			for _, source := range c.Grid.DataGaps {
				gaps[source]++
			}
		}
	}
	return gaps
}
