package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "fairshare/internal/log"
	"fairshare/internal/sheets"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to check for unexported ledger rows (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of rows to export per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is how many failed attempts a row gets before it is parked (default: 3)
	MaxRetries int
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// ExportProcessor copies closed periods from the ledger to the points exporter.
// Rows that keep failing are parked in memory until Retry or a restart.
type ExportProcessor struct {
	queue    sheets.ExportQueue
	exporter sheets.PointsExporter
	config   ExportProcessorConfig
	logger   *applog.Logger
	now      func() time.Time

	failMu   sync.Mutex
	failures map[string]int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(queue sheets.ExportQueue, exporter sheets.PointsExporter, config ExportProcessorConfig, logger *applog.Logger) *ExportProcessor {
	def := DefaultExportProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize < 1 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = def.MaxRetries
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportProcessor{
		queue:    queue,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
		failures: make(map[string]int),
	}
}

// Start begins the polling loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to finish the current row.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.runBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runBatch(ctx)
		}
	}
}

func (p *ExportProcessor) runBatch(ctx context.Context) {
	if _, err := p.ProcessBatch(ctx, p.config.BatchSize); err != nil {
		p.logger.ErrorContext(ctx, "Periodic export failed", applog.FieldError, err)
	}
}

// ProcessBatch exports up to limit pending rows, skipping parked ones.
// It returns how many rows were exported.
func (p *ExportProcessor) ProcessBatch(ctx context.Context, limit int) (int, error) {
	if p.queue == nil || p.exporter == nil {
		return 0, fmt.Errorf("export processor not properly initialized")
	}

	pending, err := p.queue.PendingExports(ctx, limit+p.Parked())
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}

	exported := 0
	for _, row := range pending {
		if exported >= limit {
			break
		}
		if ctx.Err() != nil {
			return exported, ctx.Err()
		}
		if p.IsParked(row) {
			continue
		}
		if err := p.Export(ctx, row); err != nil {
			continue
		}
		exported++
	}

	if exported > 0 {
		p.logger.InfoContext(ctx, "Exported closed periods",
			applog.FieldCount, exported,
			"fetched", len(pending))
	}
	return exported, nil
}

// Export writes one ledger row out and marks it exported.
func (p *ExportProcessor) Export(ctx context.Context, row sheets.PeriodPoints) error {
	if row.ExportedAt != nil {
		return nil
	}
	ref, err := p.exporter.ExportPoints(ctx, row)
	if err != nil {
		p.recordFailure(ctx, row, err)
		return fmt.Errorf("export %s %s: %w", row.PartyID, row.Period, err)
	}

	if err := p.queue.MarkExported(ctx, row.PartyID, row.Period, p.now().UTC()); err != nil {
		// The row reached the sheet; a duplicate append on the next scan is tolerable.
		p.logger.WarnContext(ctx, "Failed to mark period as exported",
			applog.FieldPartyID, row.PartyID,
			applog.FieldPeriod, row.Period,
			applog.FieldError, err)
	}
	p.clearFailure(row)

	p.logger.InfoContext(ctx, "Exported closed period",
		applog.FieldPartyID, row.PartyID,
		applog.FieldPeriod, row.Period,
		applog.FieldPointsTotal, row.Breakdown.Total,
		"row_ref", ref)
	return nil
}

func (p *ExportProcessor) recordFailure(ctx context.Context, row sheets.PeriodPoints, err error) {
	key := sheets.Key(row.PartyID, row.Period)
	p.failMu.Lock()
	p.failures[key]++
	attempts := p.failures[key]
	p.failMu.Unlock()

	if attempts >= p.config.MaxRetries {
		p.logger.ErrorContext(ctx, "Export failed permanently after max retries",
			applog.FieldPartyID, row.PartyID,
			applog.FieldPeriod, row.Period,
			"attempts", attempts,
			applog.FieldError, err)
		return
	}
	p.logger.WarnContext(ctx, "Export failed",
		applog.FieldPartyID, row.PartyID,
		applog.FieldPeriod, row.Period,
		"attempt", attempts,
		applog.FieldError, err)
}

func (p *ExportProcessor) clearFailure(row sheets.PeriodPoints) {
	p.failMu.Lock()
	delete(p.failures, sheets.Key(row.PartyID, row.Period))
	p.failMu.Unlock()
}

// IsParked reports whether row has used up its retries.
func (p *ExportProcessor) IsParked(row sheets.PeriodPoints) bool {
	p.failMu.Lock()
	defer p.failMu.Unlock()
	return p.failures[sheets.Key(row.PartyID, row.Period)] >= p.config.MaxRetries
}

// Parked returns how many rows exceeded MaxRetries.
func (p *ExportProcessor) Parked() int {
	p.failMu.Lock()
	defer p.failMu.Unlock()
	n := 0
	for _, attempts := range p.failures {
		if attempts >= p.config.MaxRetries {
			n++
		}
	}
	return n
}

// RetryParked gives parked rows a fresh set of attempts.
func (p *ExportProcessor) RetryParked() {
	p.failMu.Lock()
	p.failures = make(map[string]int)
	p.failMu.Unlock()
}
