package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/export"
	"github.com/dvloznov/finance-ledger/internal/jobs"
)

// ErrExportDisabled is returned when no export sink is configured.
var ErrExportDisabled = errors.New("no export sinks configured")

// RunExport builds a snapshot of the job's user ledger and writes it to
// every configured sink. Sink results are stored on the job even when the
// run fails so that partial progress is visible.
func (a *App) RunExport(ctx context.Context, job *jobs.ExportJob) error {
	if a.Exporter == nil {
		return ErrExportDisabled
	}

	snap, err := export.BuildSnapshot(ctx, a.Ledger.ForUser(job.UserID))
	if err != nil {
		return fmt.Errorf("RunExport: %w", err)
	}

	a.Log.Info().
		Str("job_id", job.JobID).
		Str("user_id", job.UserID).
		Int("transactions", len(snap.Transactions)).
		Strs("sinks", a.Exporter.Sinks()).
		Msg("Exporting ledger snapshot")

	results, err := a.Exporter.Run(ctx, snap)
	job.Results = results
	if err != nil {
		return fmt.Errorf("RunExport: %w", err)
	}
	return nil
}
