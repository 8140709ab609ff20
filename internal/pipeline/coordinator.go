package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signalforge/config"
	"signalforge/internal/agents"
	"signalforge/internal/dataflows"
	"signalforge/internal/gate"
	"signalforge/internal/metrics"
	"signalforge/internal/models"
	"signalforge/internal/oracle"
	"signalforge/internal/publish"
	"signalforge/internal/retry"
	"signalforge/internal/store"
)

// Stage names for the run state machine, emitted into the event stream.
type Stage string

const (
	StageCollecting    Stage = "collecting"
	StageScanning      Stage = "scanning"
	StageNeutralStop   Stage = "neutral_stop"
	StageAnalyzing     Stage = "analyzing"
	StageValidating    Stage = "validating"
	StageRejected      Stage = "rejected"
	StageGenerating    Stage = "generating"
	StagePublishing    Stage = "publishing"
	StageIntelFallback Stage = "intel_fallback"
	StageDone          Stage = "done"
)

const (
	eventLogCapacity  = 100
	candidateInterval = "4h"
	candidateLookback = 60
)

// Coordinator owns one pipeline's lifecycle: it sequences
// Collect → Scan → Analyze → Validate → Generate → Publish, falls back to
// the informational path when no trade qualifies, and guarantees that
// every run terminates in exactly one persisted RunRecord.
type Coordinator struct {
	cfg     *config.Config
	log     zerolog.Logger
	events  *EventLog
	metrics *metrics.Metrics

	aggregator *dataflows.Aggregator
	candles    dataflows.CandleSource
	guard      *oracle.Guard

	scanner   agents.Agent
	analyzer  agents.Agent
	generator agents.Agent
	retrier   *retry.Controller

	store     store.Store
	scheduler *publish.Scheduler

	now func() time.Time
}

func New(
	cfg *config.Config,
	log zerolog.Logger,
	m *metrics.Metrics,
	aggregator *dataflows.Aggregator,
	candles dataflows.CandleSource,
	guard *oracle.Guard,
	scanner, analyzer, generator agents.Agent,
	st store.Store,
	delivery publish.Delivery,
) *Coordinator {
	events := NewEventLog(eventLogCapacity)

	c := &Coordinator{
		cfg:        cfg,
		log:        log,
		events:     events,
		metrics:    m,
		aggregator: aggregator,
		candles:    candles,
		guard:      guard,
		scanner:    scanner,
		analyzer:   analyzer,
		generator:  generator,
		store:      st,
		now:        func() time.Time { return time.Now().UTC() },
	}

	c.retrier = retry.NewController(cfg.MaxAttempts, log, func(msg string, fields map[string]any) {
		events.Append(SeverityWarn, msg, fields)
	})

	c.scheduler = publish.NewScheduler(delivery, st, map[models.Tier]time.Duration{
		models.TierPremium:  0,
		models.TierStandard: cfg.StandardTierDelay,
		models.TierFree:     cfg.FreeTierDelay,
	}, log, func(msg string, fields map[string]any) {
		if _, failed := fields["error"]; failed {
			events.Append(SeverityWarn, msg, fields)
			if m != nil {
				if tier, ok := fields["tier"].(string); ok {
					m.DeliveryFailures.WithLabelValues(tier).Inc()
				}
			}
			return
		}
		events.Append(SeverityInfo, msg, fields)
	})

	return c
}

// Events exposes the run event stream to external observers.
func (c *Coordinator) Events(afterSeq uint64) []Event {
	return c.events.Events(afterSeq)
}

// WaitDeliveries blocks until in-flight tier deliveries complete. Only for
// shutdown paths; runs themselves never wait on distribution.
func (c *Coordinator) WaitDeliveries() {
	c.scheduler.Wait()
}

func (c *Coordinator) transition(stage Stage, fields map[string]any) {
	c.log.Info().Str("stage", string(stage)).Msg("stage transition")
	c.events.Append(SeverityInfo, "entering stage "+string(stage), fields)
}

// RunPipeline executes one full pass and always returns a persisted run
// record. The returned error is non-nil only when even the terminal record
// could not be written.
func (c *Coordinator) RunPipeline(ctx context.Context) (*models.RunRecord, error) {
	started := c.now()
	runID := fmt.Sprintf("run-%d", started.UnixNano())
	c.events.Append(SeverityInfo, "run started", map[string]any{"run_id": runID})

	c.transition(StageCollecting, nil)
	snap := c.aggregator.Collect(ctx)
	c.noteProviderFailures(snap)
	if snap.Empty() {
		return c.finishSkip(ctx, runID, started, "", fmt.Errorf("every market data provider failed, nothing to evaluate"))
	}

	exclude := c.activeSymbols(ctx)
	if c.signalBudgetSpent(ctx) {
		return c.intelRun(ctx, runID, started, snap, "signal budget for the current window is already spent")
	}

	c.transition(StageScanning, nil)
	scan, err := retry.Do[agents.ScanResult](ctx, c.retrier, c.scanner, agents.ScanInput(snap, exclude))
	if err != nil {
		c.countRetryFailure(agents.RoleScanner)
		return c.finishSkip(ctx, runID, started, "", err)
	}

	candidates := make([]models.Candidate, 0, len(scan.Candidates))
	for _, cand := range scan.Candidates {
		if containsFold(exclude, cand.Symbol) {
			c.events.Append(SeverityInfo, "candidate dropped, symbol already has open exposure", map[string]any{"symbol": cand.Symbol})
			continue
		}
		candidates = append(candidates, cand)
	}
	if len(candidates) == 0 {
		c.transition(StageNeutralStop, map[string]any{"market_bias": scan.MarketBias})
		return c.intelRun(ctx, runID, started, snap, "scanner found no tradeable candidates")
	}

	c.transition(StageAnalyzing, map[string]any{"candidates": len(candidates)})
	charts := c.fetchCharts(ctx, candidates)
	analysis, err := retry.Do[agents.AnalysisResult](ctx, c.retrier, c.analyzer, agents.AnalyzeInput(snap, scan.MarketBias, charts))
	if err != nil {
		c.countRetryFailure(agents.RoleAnalyzer)
		return c.finishSkip(ctx, runID, started, "", err)
	}
	if analysis.Action != "signal" || !analysis.Signal.Actionable() {
		return c.intelRun(ctx, runID, started, snap, "analyzer declined to trade: "+analysis.Commentary)
	}

	sig := analysis.Signal
	rejected, reason := c.validateSignal(ctx, sig)
	if rejected {
		c.transition(StageRejected, map[string]any{"symbol": sig.Token.Symbol})
		return c.intelRun(ctx, runID, started, snap, reason)
	}

	c.transition(StageGenerating, map[string]any{"symbol": sig.Token.Symbol})
	content, err := retry.Do[agents.ContentResult](ctx, c.retrier, c.generator, agents.SignalContentInput(sig))
	if err != nil {
		c.countRetryFailure(agents.RoleGenerator)
		return c.finishSkip(ctx, runID, started, sig.Token.Symbol, err)
	}

	c.transition(StagePublishing, nil)
	confidence := sig.Confidence
	record := c.newRecord(runID, models.RunSignal, started)
	record.Symbol = sig.Token.Symbol
	record.Content = content.Title + "\n\n" + content.Body
	record.Confidence = &confidence
	if err := c.store.CreateRun(ctx, record); err != nil {
		return nil, fmt.Errorf("persist signal run: %w", err)
	}
	c.scheduler.Publish(record.ID, record.Content, models.AllTiers())

	c.finishMetrics(record)
	c.transition(StageDone, map[string]any{"run_id": runID, "type": string(record.Type)})
	return record, nil
}

// RunDeepDive analyzes one requested symbol, bypassing the scanner. The
// outcome is a deep_dive record delivered to the premium tier only.
func (c *Coordinator) RunDeepDive(ctx context.Context, symbol string) (*models.RunRecord, error) {
	started := c.now()
	runID := fmt.Sprintf("run-%d", started.UnixNano())
	c.events.Append(SeverityInfo, "deep dive started", map[string]any{"run_id": runID, "symbol": symbol})

	c.transition(StageCollecting, nil)
	snap := c.aggregator.Collect(ctx)
	c.noteProviderFailures(snap)

	candidate := models.Candidate{Symbol: symbol, Name: symbol, Rationale: "operator requested deep dive"}
	c.transition(StageAnalyzing, map[string]any{"candidates": 1})
	charts := c.fetchCharts(ctx, []models.Candidate{candidate})
	analysis, err := retry.Do[agents.AnalysisResult](ctx, c.retrier, c.analyzer, agents.AnalyzeInput(snap, "neutral", charts))
	if err != nil {
		c.countRetryFailure(agents.RoleAnalyzer)
		return c.finishSkip(ctx, runID, started, symbol, err)
	}

	var confidence *float64
	body := analysis.Commentary
	if analysis.Action == "signal" && analysis.Signal.Actionable() {
		sig := analysis.Signal
		if rejected, reason := c.validateSignal(ctx, sig); rejected {
			c.transition(StageRejected, map[string]any{"symbol": symbol})
			body = fmt.Sprintf("%s\n\nA trade setup was considered but rejected: %s", analysis.Commentary, reason)
		} else {
			conf := sig.Confidence
			confidence = &conf
			body = fmt.Sprintf("%s\n\nValidated setup: %s %s entry %.6g target %.6g stop %.6g",
				analysis.Commentary, sig.Direction, sig.Token.Symbol, *sig.EntryPrice, *sig.TargetPrice, *sig.StopLoss)
		}
	}

	c.transition(StageGenerating, nil)
	content, err := retry.Do[agents.ContentResult](ctx, c.retrier, c.generator, agents.Input{
		System: "You are the publication writer for a trading signal service. Reply with a single JSON object: {\"title\": \"...\", \"body\": \"...\"}",
		User:   fmt.Sprintf("Write a premium deep-dive report on %s from this analysis:\n%s", symbol, body),
	})
	if err != nil {
		c.countRetryFailure(agents.RoleGenerator)
		return c.finishSkip(ctx, runID, started, symbol, err)
	}

	c.transition(StagePublishing, nil)
	record := c.newRecord(runID, models.RunDeepDive, started)
	record.Symbol = symbol
	record.Content = content.Title + "\n\n" + content.Body
	record.Confidence = confidence
	if err := c.store.CreateRun(ctx, record); err != nil {
		return nil, fmt.Errorf("persist deep dive run: %w", err)
	}
	c.scheduler.DeliverImmediate(record.ID, models.TierPremium, record.Content)

	c.finishMetrics(record)
	c.transition(StageDone, map[string]any{"run_id": runID, "type": string(record.Type)})
	return record, nil
}

// validateSignal applies the price oracle and the quality gate. A true
// result means the signal was rejected; the reason is already logged.
// Market orders whose entry drifts inside the allowed deviation are
// snapped to the reference price before gating, since their intent is
// "execute now". Limit orders are never corrected.
func (c *Coordinator) validateSignal(ctx context.Context, sig *models.ProposedSignal) (rejected bool, reason string) {
	c.transition(StageValidating, map[string]any{"symbol": sig.Token.Symbol})

	priceVerdict := c.guard.ValidatePrice(ctx, sig.Token.Symbol, *sig.EntryPrice, sig.OrderKind)
	if !priceVerdict.Valid {
		c.events.Append(SeverityWarn, "price check rejected the proposal", map[string]any{
			"symbol": sig.Token.Symbol,
			"reason": priceVerdict.Reason,
		})
		return true, "price check failed: " + priceVerdict.Reason
	}
	if sig.OrderKind == models.OrderMarket && priceVerdict.DeviationPct > 0 {
		corrected := priceVerdict.ReferencePrice
		c.events.Append(SeverityInfo, "market entry snapped to reference price", map[string]any{
			"proposed":  *sig.EntryPrice,
			"reference": corrected,
			"provider":  priceVerdict.Provider,
		})
		sig.EntryPrice = &corrected
	}

	verdict := gate.Evaluate(sig, priceVerdict.ReferencePrice)
	if !verdict.Valid {
		c.events.Append(SeverityWarn, "quality gate rejected the proposal", map[string]any{
			"symbol":      sig.Token.Symbol,
			"reasons":     verdict.Reasons,
			"risk_reward": verdict.RiskReward,
		})
		return true, fmt.Sprintf("quality gate failed: %v", verdict.Reasons)
	}

	c.events.Append(SeverityInfo, "signal passed validation", map[string]any{
		"symbol":        sig.Token.Symbol,
		"risk_reward":   verdict.RiskReward,
		"stop_loss_pct": verdict.StopLossPct,
		"direction":     string(verdict.Direction),
	})
	return false, ""
}

// intelRun is the informational fallback: no trade qualified, so publish a
// market update instead and record the run as intel.
func (c *Coordinator) intelRun(ctx context.Context, runID string, started time.Time, snap *models.MarketSnapshot, reason string) (*models.RunRecord, error) {
	c.transition(StageIntelFallback, map[string]any{"reason": reason})

	content, err := retry.Do[agents.ContentResult](ctx, c.retrier, c.generator, agents.IntelContentInput(snap, reason))
	if err != nil {
		c.countRetryFailure(agents.RoleGenerator)
		return c.finishSkip(ctx, runID, started, "", err)
	}

	c.transition(StagePublishing, nil)
	record := c.newRecord(runID, models.RunIntel, started)
	record.Content = content.Title + "\n\n" + content.Body
	if err := c.store.CreateRun(ctx, record); err != nil {
		return nil, fmt.Errorf("persist intel run: %w", err)
	}
	// Intel is non-actionable, so every tier gets it without delay.
	for _, tier := range models.AllTiers() {
		c.scheduler.DeliverImmediate(record.ID, tier, record.Content)
	}

	c.finishMetrics(record)
	c.transition(StageDone, map[string]any{"run_id": runID, "type": string(record.Type)})
	return record, nil
}

// finishSkip terminates a run that failed outside a deliberate no-trade
// decision. The error is logged and the run still persists a record, so
// operators can always reconstruct why no signal appeared.
func (c *Coordinator) finishSkip(ctx context.Context, runID string, started time.Time, symbol string, cause error) (*models.RunRecord, error) {
	c.events.Append(SeverityError, "run failed", map[string]any{"run_id": runID, "error": cause.Error()})
	c.log.Error().Str("run_id", runID).Err(cause).Msg("pipeline run failed")

	record := c.newRecord(runID, models.RunSkip, started)
	record.Symbol = symbol
	record.Error = cause.Error()
	if err := c.store.CreateRun(ctx, record); err != nil {
		return nil, fmt.Errorf("persist skip run: %w", err)
	}

	c.finishMetrics(record)
	c.transition(StageDone, map[string]any{"run_id": runID, "type": string(record.Type)})
	return record, nil
}

func (c *Coordinator) newRecord(runID string, runType models.RunType, started time.Time) *models.RunRecord {
	finished := c.now()
	return &models.RunRecord{
		ID:         runID,
		Type:       runType,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}
}

func (c *Coordinator) finishMetrics(record *models.RunRecord) {
	if c.metrics == nil {
		return
	}
	c.metrics.RunsTotal.WithLabelValues(string(record.Type)).Inc()
	c.metrics.RunDuration.Observe(record.Duration.Seconds())
}

func (c *Coordinator) countRetryFailure(role agents.Role) {
	if c.metrics != nil {
		c.metrics.AgentRetries.WithLabelValues(string(role)).Inc()
	}
}

func (c *Coordinator) noteProviderFailures(snap *models.MarketSnapshot) {
	for provider, msg := range snap.Failures {
		c.events.Append(SeverityWarn, "provider failed during collection", map[string]any{
			"provider": provider,
			"error":    msg,
		})
		if c.metrics != nil {
			c.metrics.ProviderFailures.WithLabelValues(provider).Inc()
		}
	}
}

func (c *Coordinator) signalBudgetSpent(ctx context.Context) bool {
	count, err := c.store.RecentSignalCount(ctx, c.cfg.SignalWindowHours)
	if err != nil {
		c.events.Append(SeverityWarn, "recent signal count unavailable", map[string]any{"error": err.Error()})
		return false
	}
	return count >= c.cfg.MaxSignalsPerWindow
}

func (c *Coordinator) activeSymbols(ctx context.Context) []string {
	active, err := c.store.ActiveSymbols(ctx, c.cfg.ExposureWindowHours)
	if err != nil {
		c.events.Append(SeverityWarn, "active symbol list unavailable", map[string]any{"error": err.Error()})
		return nil
	}
	symbols := make([]string, 0, len(active))
	for sym := range active {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// fetchCharts loads candle history for every candidate concurrently. A
// failed fetch leaves that candidate chartless rather than aborting the
// stage.
func (c *Coordinator) fetchCharts(ctx context.Context, candidates []models.Candidate) []agents.CandidateChart {
	charts := make([]agents.CandidateChart, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand models.Candidate) {
			defer wg.Done()
			candles, err := c.candles.GetOHLCV(ctx, cand.Symbol, candidateInterval, candidateLookback)
			if err != nil {
				c.events.Append(SeverityWarn, "chart fetch failed for candidate", map[string]any{
					"symbol": cand.Symbol,
					"error":  err.Error(),
				})
				candles = nil
			}
			charts[i] = agents.CandidateChart{Candidate: cand, Interval: candidateInterval, Candles: candles}
		}(i, cand)
	}
	wg.Wait()
	return charts
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
