// Package worker consumes period-closed messages and keeps the points
// spreadsheet in step with the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"

	"fairshare/internal/amqp"
	applog "fairshare/internal/log"
	"fairshare/internal/services"
	"fairshare/internal/sheets"
)

// PeriodWorker exports closed periods announced over AMQP and sweeps up any
// ledger rows whose message was lost.
type PeriodWorker struct {
	ledger    sheets.PointsLedger
	exports   *services.ExportProcessor
	batchSize int
	logger    *applog.Logger
}

func NewPeriodWorker(ledger sheets.PointsLedger, exports *services.ExportProcessor, batchSize int, logger *applog.Logger) *PeriodWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &PeriodWorker{
		ledger:    ledger,
		exports:   exports,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandlePeriodClosed exports both parties' ledger rows for the announced
// period. A returned error makes the consumer requeue the message, so only
// ledger read failures are returned. Export failures are recorded by the
// processor and left to the periodic scan.
func (w *PeriodWorker) HandlePeriodClosed(ctx context.Context, msg *amqp.PeriodClosedMessage) error {
	w.logger.InfoContext(ctx, "Processing period closed message",
		applog.FieldCoupleID, msg.CoupleID,
		applog.FieldPeriod, msg.Period)

	for _, partyID := range []string{msg.SelfID, msg.PartnerID} {
		row, err := w.ledger.GetPeriod(ctx, partyID, msg.Period)
		if errors.Is(err, sheets.ErrPeriodNotClosed) {
			// Nothing to export; the message outran a rolled back close.
			w.logger.WarnContext(ctx, "Ledger row missing for closed period",
				applog.FieldPartyID, partyID,
				applog.FieldPeriod, msg.Period)
			continue
		}
		if err != nil {
			return fmt.Errorf("get ledger row for %s: %w", partyID, err)
		}
		if w.exports.IsParked(row) {
			w.logger.WarnContext(ctx, "Skipping parked export",
				applog.FieldPartyID, partyID,
				applog.FieldPeriod, msg.Period)
			continue
		}
		if err := w.exports.Export(ctx, row); err != nil {
			w.logger.WarnContext(ctx, "Export failed, leaving row for the pending scan",
				applog.FieldPartyID, partyID,
				applog.FieldPeriod, msg.Period,
				applog.FieldError, err)
		}
	}
	return nil
}

// ProcessPendingExports is the backup path for lost messages.
func (w *PeriodWorker) ProcessPendingExports(ctx context.Context) error {
	_, err := w.exports.ProcessBatch(ctx, w.batchSize)
	return err
}

// StartupCheck exports a larger batch of pending rows at startup to recover
// from worker downtime.
func (w *PeriodWorker) StartupCheck(ctx context.Context) error {
	n, err := w.exports.ProcessBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup export completed", applog.FieldCount, n)
	return nil
}
