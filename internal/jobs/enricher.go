package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/services"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 10
)

// Enricher is the background worker that fills in report narratives after the
// synchronous part of a submission has completed. Report creation never waits
// on text generation; the worker drains reports whose narrative is still
// empty, oldest first. SetNarrative is conditional on the narrative still
// being empty, so two workers racing the same report stay harmless.
type Enricher struct {
	db           *gorm.DB
	log          *logger.Logger
	reportRepo   repos.ReportRepo
	narrative    services.NarrativeService
	pollInterval time.Duration
	batchSize    int
}

func NewEnricher(db *gorm.DB, baseLog *logger.Logger, reportRepo repos.ReportRepo, narrative services.NarrativeService) *Enricher {
	return &Enricher{
		db:           db,
		log:          baseLog.With("component", "ReportEnricher"),
		reportRepo:   reportRepo,
		narrative:    narrative,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
}

func (e *Enricher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.drain(ctx)
			}
		}
	}()
}

func (e *Enricher) drain(ctx context.Context) {
	reports, err := e.reportRepo.ListMissingNarrative(ctx, nil, e.batchSize)
	if err != nil {
		e.log.Warn("Failed to list reports awaiting narrative", "error", err)
		return
	}
	for _, report := range reports {
		if ctx.Err() != nil {
			return
		}
		e.enrichOne(ctx, report)
	}
}

func (e *Enricher) enrichOne(ctx context.Context, report *types.Report) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Narrative enrichment panic", "report_id", report.ID, "panic", r)
		}
	}()

	text, err := e.narrative.ComposeNarrative(ctx, report)
	if err != nil {
		e.log.Warn("Failed to compose narrative", "report_id", report.ID, "error", err)
		return
	}
	if text == "" {
		return
	}
	if err := e.reportRepo.SetNarrative(ctx, nil, report.ID, text); err != nil {
		e.log.Warn("Failed to store narrative", "report_id", report.ID, "error", err)
		return
	}
	e.log.Debug("Report narrative stored", "report_id", report.ID, "kind", report.Kind)
}
