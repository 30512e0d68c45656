// Package harvest decomposes a catalog harvest into independent tasks and
// executes them, sequentially or across a bounded worker pool, persisting a
// cumulative snapshot after every batch.
package harvest

import (
	"github.com/google/uuid"

	"github.com/openfipe/fipe-harvester/internal/model"
)

// Task is the unit of work: one brand in one reference period. Tasks share
// no state, so any subset can fail without affecting the rest.
type Task struct {
	ID     string
	Period model.ReferencePeriod
	Brand  *model.Brand
}

// NewTask creates a task with a short random identifier for log correlation.
func NewTask(period model.ReferencePeriod, brand *model.Brand) Task {
	return Task{
		ID:     uuid.New().String()[:8],
		Period: period,
		Brand:  brand,
	}
}

// BuildTasks crosses the brand universe with every selected period. The
// brand universe comes from the most recent selected period; brands that
// did not exist in an older period simply produce empty model listings
// there.
func BuildTasks(periods []model.ReferencePeriod, brands []*model.Brand) []Task {
	tasks := make([]Task, 0, len(periods)*len(brands))
	for _, period := range periods {
		for _, brand := range brands {
			tasks = append(tasks, NewTask(period, brand))
		}
	}
	return tasks
}
