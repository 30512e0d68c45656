package harvest

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openfipe/fipe-harvester/internal/extract"
	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/internal/snapshot"
	"github.com/openfipe/fipe-harvester/internal/store"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// ClientFactory builds a fresh API client. In parallel mode every task gets
// its own client, so pacing clocks are per worker and never coordinate
// across workers.
type ClientFactory func() fipe.Client

// Spec selects what a harvest covers and how it runs.
type Spec struct {
	StartPeriod  string
	EndPeriod    string
	VehicleTypes []model.VehicleType
	Sequential   bool
	Workers      int
}

// Summary reports what a finished harvest produced.
type Summary struct {
	RunID       string
	TasksTotal  int
	TasksFailed int
	Result      *model.ExtractionResult
}

// Orchestrator owns the full harvest lifecycle: decompose, execute, merge,
// persist, and record the run in the ledger.
type Orchestrator struct {
	factory   ClientFactory
	snapshots *snapshot.Store
	ledger    store.Store
}

// NewOrchestrator creates an orchestrator. ledger may be nil to skip run
// recording.
func NewOrchestrator(factory ClientFactory, snapshots *snapshot.Store, ledger store.Store) *Orchestrator {
	return &Orchestrator{factory: factory, snapshots: snapshots, ledger: ledger}
}

// Run executes one harvest. Failures before task decomposition (period
// listing, brand universe) are fatal; from there on, a failed task only
// costs its own fragment.
func (o *Orchestrator) Run(ctx context.Context, spec Spec) (*Summary, error) {
	if spec.Workers <= 0 {
		spec.Workers = 4
	}
	if len(spec.VehicleTypes) == 0 {
		spec.VehicleTypes = model.AllVehicleTypes()
	}

	runID := o.recordStart(ctx, spec)

	summary, err := o.run(ctx, spec)
	if err != nil {
		o.recordFailure(ctx, runID, err)
		return nil, err
	}
	summary.RunID = runID

	o.recordCompletion(ctx, runID, summary)
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context, spec Spec) (*Summary, error) {
	client := o.factory()

	periods, err := extract.NewPeriodExtractor(client).Extract(ctx, extract.PeriodQuery{})
	if err != nil {
		return nil, eris.Wrap(err, "harvest: list reference periods")
	}
	selected := extract.FilterRange(periods, spec.StartPeriod, spec.EndPeriod)
	if len(selected) == 0 {
		return nil, eris.Errorf("harvest: no reference periods in range %s..%s", spec.StartPeriod, spec.EndPeriod)
	}

	latest, _ := extract.LatestPeriod(selected)
	brandExtractor := extract.NewBrandExtractor(client)

	var universe []*model.Brand
	for _, vt := range spec.VehicleTypes {
		brands, err := brandExtractor.Extract(ctx, extract.BrandQuery{Period: latest, VehicleType: vt})
		if err != nil {
			return nil, eris.Wrapf(err, "harvest: brand universe for %s", vt)
		}
		universe = append(universe, brands...)
	}

	tasks := BuildTasks(selected, universe)
	zap.L().Info("harvest decomposed",
		zap.Int("periods", len(selected)),
		zap.Int("brands", len(universe)),
		zap.Int("tasks", len(tasks)),
		zap.Bool("sequential", spec.Sequential),
	)

	cumulative := &model.ExtractionResult{ReferencePeriods: selected}

	var failed int
	if spec.Sequential {
		failed, err = o.runSequential(ctx, client, tasks, cumulative)
	} else {
		failed, err = o.runParallel(ctx, spec.Workers, tasks, cumulative)
	}
	if err != nil {
		return nil, err
	}

	return &Summary{
		TasksTotal:  len(tasks),
		TasksFailed: failed,
		Result:      cumulative,
	}, nil
}

// runParallel executes tasks in batches of twice the worker count. Within a
// batch, at most workers tasks run at once, each on its own client. After
// each batch the entire cumulative result is persisted, so the newest
// partial file alone reconstructs all progress.
func (o *Orchestrator) runParallel(ctx context.Context, workers int, tasks []Task, cumulative *model.ExtractionResult) (int, error) {
	batchSize := 2 * workers
	failed := 0
	batchIdx := 0

	for start := 0; start < len(tasks); start += batchSize {
		end := start + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[start:end]
		batchIdx++

		var (
			mu        sync.Mutex
			fragments []*model.ExtractionResult
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		for _, task := range batch {
			task := task
			g.Go(func() error {
				fragment, err := runTask(gctx, o.factory(), task)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					zap.L().Error("task failed, dropping fragment",
						zap.String("task_id", task.ID),
						zap.String("period", task.Period.Period),
						zap.String("brand", task.Brand.Name),
						zap.Error(err),
					)
					mu.Lock()
					failed++
					mu.Unlock()
					return nil // don't fail the group
				}

				mu.Lock()
				fragments = append(fragments, fragment)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return failed, eris.Wrap(err, "harvest: batch aborted")
		}

		for _, fragment := range fragments {
			cumulative.Merge(fragment)
		}
		if _, err := o.snapshots.SavePartial(cumulative, batchIdx); err != nil {
			return failed, err
		}
	}

	return failed, nil
}

// runSequential executes tasks one at a time on a single shared client and
// persists once at the end.
func (o *Orchestrator) runSequential(ctx context.Context, client fipe.Client, tasks []Task, cumulative *model.ExtractionResult) (int, error) {
	failed := 0
	for _, task := range tasks {
		fragment, err := runTask(ctx, client, task)
		if err != nil {
			if ctx.Err() != nil {
				return failed, eris.Wrap(ctx.Err(), "harvest: cancelled")
			}
			zap.L().Error("task failed, dropping fragment",
				zap.String("task_id", task.ID),
				zap.String("period", task.Period.Period),
				zap.String("brand", task.Brand.Name),
				zap.Error(err),
			)
			failed++
			continue
		}
		cumulative.Merge(fragment)
	}

	if _, err := o.snapshots.SavePartial(cumulative, 1); err != nil {
		return failed, err
	}
	return failed, nil
}

// Ledger bookkeeping. Ledger failures are logged, never fatal: losing a
// ledger row must not lose a harvest.

func (o *Orchestrator) recordStart(ctx context.Context, spec Spec) string {
	if o.ledger == nil {
		return ""
	}

	types := make([]string, 0, len(spec.VehicleTypes))
	for _, vt := range spec.VehicleTypes {
		types = append(types, string(vt))
	}
	mode := "parallel"
	if spec.Sequential {
		mode = "sequential"
	}

	run, err := o.ledger.CreateRun(ctx, store.RunSpec{
		StartPeriod:  spec.StartPeriod,
		EndPeriod:    spec.EndPeriod,
		VehicleTypes: types,
		Mode:         mode,
		OutputDir:    o.snapshots.Dir(),
	})
	if err != nil {
		zap.L().Warn("run ledger insert failed", zap.Error(err))
		return ""
	}
	return run.ID
}

func (o *Orchestrator) recordCompletion(ctx context.Context, runID string, summary *Summary) {
	if o.ledger == nil || runID == "" {
		return
	}

	periods, brands, models, yearModels, values := summary.Result.Counts()
	err := o.ledger.CompleteRun(ctx, runID, store.RunCounts{
		Periods:     periods,
		Brands:      brands,
		Models:      models,
		YearModels:  yearModels,
		Values:      values,
		TasksTotal:  summary.TasksTotal,
		TasksFailed: summary.TasksFailed,
	})
	if err != nil {
		zap.L().Warn("run ledger completion failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, runID string, runErr error) {
	if o.ledger == nil || runID == "" {
		return
	}
	if err := o.ledger.FailRun(ctx, runID, runErr); err != nil {
		zap.L().Warn("run ledger failure update failed", zap.String("run_id", runID), zap.Error(err))
	}
}
