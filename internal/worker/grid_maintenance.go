package worker

import (
	"context"
	"time"
)

// GridRebuilder is implemented by the grid service.
type GridRebuilder interface {
	RebuildStaleGrids(ctx context.Context, batchSize int) error
}

// gridRebuildTimeout bounds one maintenance sweep; tessellation of a
// large farm is a heavy PostGIS query.
const gridRebuildTimeout = 5 * time.Minute

// NewGridMaintenanceJob returns the job that regenerates grids for
// farms whose boundary changed since the last build.
func NewGridMaintenanceJob(rebuilder GridRebuilder, batchSize int) Job {
	return func(ctx context.Context) error {
		jobCtx, cancel := context.WithTimeout(ctx, gridRebuildTimeout)
		defer cancel()
		return rebuilder.RebuildStaleGrids(jobCtx, batchSize)
	}
}
