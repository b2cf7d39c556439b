// Package analyzer implements the per-event analysis pipeline: a fixed-order
// state machine that filters the market catalog down to a relevant subset,
// scores impact per market, arbitrates a single trade, executes it, and
// records the full decision trail as an AnalysisSession.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/seerbot/internal/bus"
	"github.com/alanyoungcy/seerbot/internal/domain"
)

// Notifier receives operator alerts for notable pipeline outcomes.
// notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the analyzer trade policy.
type Config struct {
	// TradeSizeUSDC is the fixed per-trade size. The oracle's suggested size
	// is advisory only.
	TradeSizeUSDC float64
	// MaxRelevantMarkets bounds the analyze fan-out (at most 5).
	MaxRelevantMarkets int
	// RemoteTimeout bounds each oracle and venue call. A timeout is treated
	// identically to a transport failure for that call.
	RemoteTimeout time.Duration
	// MaxConcurrentSessions bounds in-flight pipeline runs.
	MaxConcurrentSessions int
}

// Pipeline drives one event at a time through the analysis state machine.
// Sessions for different events may be in flight concurrently; each session's
// fields are mutated only by the one Process call that owns it, and every
// mutation is published to the store atomically.
type Pipeline struct {
	oracle  domain.Oracle
	venue   domain.Venue // nil means execution degrades to a recorded failure
	catalog domain.MarketCatalog
	store   domain.SessionStore
	bus     domain.SignalBus
	audit   domain.SessionAuditLog // optional
	notify  Notifier               // optional
	cfg     Config
	logger  *slog.Logger
}

// New creates a Pipeline. venue, audit, and notify may be nil.
func New(
	oracle domain.Oracle,
	venue domain.Venue,
	catalog domain.MarketCatalog,
	store domain.SessionStore,
	sigBus domain.SignalBus,
	audit domain.SessionAuditLog,
	notify Notifier,
	cfg Config,
	logger *slog.Logger,
) *Pipeline {
	if cfg.MaxRelevantMarkets <= 0 || cfg.MaxRelevantMarkets > 5 {
		cfg.MaxRelevantMarkets = 5
	}
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = 1
	}
	return &Pipeline{
		oracle:  oracle,
		venue:   venue,
		catalog: catalog,
		store:   store,
		bus:     sigBus,
		audit:   audit,
		notify:  notify,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "analyzer")),
	}
}

// Run consumes events from the queue until it is closed or ctx is cancelled.
// Each event is admitted to its own pipeline execution; admissions are bounded
// by MaxConcurrentSessions. An admitted session always runs to completion.
func (p *Pipeline) Run(ctx context.Context, events <-chan domain.Event) error {
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.MaxConcurrentSessions)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				p.Process(ctx, ev)
				return nil
			})
		}
	}
}

// Process runs one event through the full state machine and returns the
// sealed session. No error ever escapes: every remote-call failure has an
// explicit fallback, and the result is always a fully-formed session.
func (p *Pipeline) Process(ctx context.Context, event domain.Event) domain.AnalysisSession {
	session := p.receive(ctx, event)

	relevant := p.filter(ctx, &session)
	if session.Sealed() {
		return session
	}
	if len(relevant) == 0 {
		p.seal(ctx, &session, domain.SessionComplete)
		return session
	}

	p.analyze(ctx, &session, relevant)

	selected, ok := p.decide(ctx, &session)
	if session.Sealed() {
		return session
	}
	if !ok {
		p.seal(ctx, &session, domain.SessionComplete)
		return session
	}

	p.execute(ctx, &session, selected)

	p.seal(ctx, &session, domain.SessionComplete)
	return session
}

// receive creates the session, marks the receiving step complete (the event
// is already fully received by the time the pipeline sees it), and broadcasts
// the raw event.
func (p *Pipeline) receive(ctx context.Context, event domain.Event) domain.AnalysisSession {
	session := domain.AnalysisSession{
		ID:        uuid.NewString(),
		Event:     event,
		Status:    domain.SessionActive,
		StartTime: time.Now().UTC(),
	}

	step := newStep(domain.StepReceiving, "Post received",
		fmt.Sprintf("New post from @%s", event.Author.Handle),
		domain.StepStatusComplete)
	session.Steps = append(session.Steps, step)

	if err := p.store.Append(session.Clone()); err != nil {
		p.logger.ErrorContext(ctx, "failed to append session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	p.emit(ctx, bus.ChannelTweet, event)
	p.emit(ctx, bus.ChannelSession, session.Clone())

	p.logger.InfoContext(ctx, "session started",
		slog.String("session_id", session.ID),
		slog.String("event_id", event.ID),
		slog.String("author", event.Author.Handle),
	)
	return session
}

// filter runs the cheap relevance stage and returns the resolved relevant
// markets in the oracle's order. A filter failure degrades gracefully: it is
// equivalent to "no relevant markets found" and never fails the session.
func (p *Pipeline) filter(ctx context.Context, session *domain.AnalysisSession) []domain.Market {
	markets := p.catalog.GetAll()

	session.Steps = append(session.Steps, newStep(domain.StepFiltering, "Filtering markets",
		fmt.Sprintf("Scanning %d tradeable markets for relevance", len(markets)),
		domain.StepStatusProcessing))
	p.sync(ctx, session)

	cctx, cancel := p.remoteCtx(ctx)
	result, err := p.oracle.FilterMarkets(cctx, session.Event, markets)
	cancel()

	if err != nil {
		p.logger.WarnContext(ctx, "filter stage failed, treating as not relevant",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		session.FilterResult = &domain.FilterResult{Summary: "filter unavailable: " + err.Error()}
		step := lastStep(session)
		step.Status = domain.StepStatusError
		step.Description = "Market filter unavailable; treating post as not relevant"
		p.seal(ctx, session, domain.SessionComplete)
		return nil
	}

	relevant := p.resolveRelevant(result.RelevantMarketIDs, markets)
	session.FilterResult = &result

	step := lastStep(session)
	step.Status = domain.StepStatusComplete
	step.Data = map[string]any{
		"isRelevant":        result.IsRelevant,
		"relevantMarketIds": result.RelevantMarketIDs,
		"summary":           result.Summary,
	}
	if !result.IsRelevant || len(relevant) == 0 {
		step.Description = "No relevant markets found"
		p.sync(ctx, session)
		return nil
	}
	step.Description = fmt.Sprintf("Found %d relevant markets", len(relevant))
	p.sync(ctx, session)
	return relevant
}

// resolveRelevant maps oracle-returned market IDs back to catalog markets,
// preserving the oracle's order, dropping unknown or duplicate IDs, and
// capping the count at MaxRelevantMarkets.
func (p *Pipeline) resolveRelevant(ids []string, markets []domain.Market) []domain.Market {
	byID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}

	seen := make(map[string]bool, len(ids))
	out := make([]domain.Market, 0, len(ids))
	for _, id := range ids {
		if len(out) == p.cfg.MaxRelevantMarkets {
			break
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		m, ok := byID[id]
		if !ok {
			p.logger.Warn("filter returned unknown market id, dropping",
				slog.String("market_id", id),
			)
			continue
		}
		out = append(out, m)
	}
	return out
}

// analyze fans out one AnalyzeImpact call per relevant market. Calls are
// independent: a failure defaults that market's judgment and never cancels
// the others. Results land in a pre-sized slot array indexed by position in
// the relevant list, so the session's impact order is deterministic
// regardless of call-completion order. The stage joins on all calls before
// proceeding.
func (p *Pipeline) analyze(ctx context.Context, session *domain.AnalysisSession, relevant []domain.Market) {
	session.Steps = append(session.Steps, newStep(domain.StepAnalyzing, "Analyzing impact",
		fmt.Sprintf("Running deep analysis on %d markets", len(relevant)),
		domain.StepStatusProcessing))
	p.sync(ctx, session)

	slots := make([]domain.ImpactJudgment, len(relevant))
	failed := make([]bool, len(relevant))

	g := new(errgroup.Group)
	for i, m := range relevant {
		g.Go(func() error {
			cctx, cancel := p.remoteCtx(ctx)
			defer cancel()

			judgment, err := p.oracle.AnalyzeImpact(cctx, session.Event, m)
			if err != nil {
				p.logger.WarnContext(ctx, "impact analysis failed, using default judgment",
					slog.String("session_id", session.ID),
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
				slots[i] = domain.DefaultJudgment(m)
				failed[i] = true
				return nil
			}
			// The oracle echoes the market id; trust our own reference.
			judgment.MarketID = m.ID
			judgment.Market = m
			slots[i] = judgment
			return nil
		})
	}
	_ = g.Wait()

	session.MarketImpacts = slots

	defaulted := 0
	for _, f := range failed {
		if f {
			defaulted++
		}
	}

	step := lastStep(session)
	step.Data = map[string]any{"impacts": session.MarketImpacts}
	if defaulted > 0 {
		step.Status = domain.StepStatusError
		step.Description = fmt.Sprintf("Analyzed %d markets (%d defaulted after errors)", len(relevant), defaulted)
	} else {
		step.Status = domain.StepStatusComplete
		step.Description = fmt.Sprintf("Analyzed %d markets", len(relevant))
	}
	p.sync(ctx, session)
}

// decide arbitrates among actionable impacts. With zero candidates the
// session heads straight to Complete; with exactly one the oracle is skipped
// and the sole candidate wins with confidence 1.0; with two or more the
// oracle must return a valid pick or the session seals as errored, because
// trading without a validated selection would forgo the single-trade
// invariant.
func (p *Pipeline) decide(ctx context.Context, session *domain.AnalysisSession) (domain.ImpactJudgment, bool) {
	var actionable []domain.ImpactJudgment
	for _, imp := range session.MarketImpacts {
		if imp.Actionable() {
			actionable = append(actionable, imp)
		}
	}

	session.Steps = append(session.Steps, newStep(domain.StepDeciding, "Selecting market",
		fmt.Sprintf("%d actionable candidates", len(actionable)),
		domain.StepStatusProcessing))
	p.sync(ctx, session)

	if len(actionable) == 0 {
		step := lastStep(session)
		step.Status = domain.StepStatusComplete
		step.Description = "No actionable impacts; holding"
		p.sync(ctx, session)
		return domain.ImpactJudgment{}, false
	}

	var selection domain.MarketSelection
	if len(actionable) == 1 {
		selection = domain.MarketSelection{
			MarketID:   actionable[0].MarketID,
			Reasoning:  "only one actionable market available",
			Confidence: 1.0,
		}
	} else {
		cctx, cancel := p.remoteCtx(ctx)
		sel, err := p.oracle.SelectBestMarket(cctx, session.Event, actionable)
		cancel()
		if err == nil && !containsMarket(actionable, sel.MarketID) {
			err = fmt.Errorf("%w: %q not among candidates", domain.ErrNoSelection, sel.MarketID)
		}
		if err != nil {
			p.logger.ErrorContext(ctx, "selection stage failed, sealing session as errored",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
			step := lastStep(session)
			step.Status = domain.StepStatusError
			step.Description = "Market selection failed: " + err.Error()
			p.seal(ctx, session, domain.SessionError)
			return domain.ImpactJudgment{}, false
		}
		selection = sel
	}

	var chosen domain.ImpactJudgment
	for _, imp := range actionable {
		if imp.MarketID == selection.MarketID {
			chosen = imp
			break
		}
	}

	step := lastStep(session)
	step.Status = domain.StepStatusComplete
	step.Description = fmt.Sprintf("Selected market %s", selection.MarketID)
	step.Data = map[string]any{
		"selectedMarketId": selection.MarketID,
		"reasoning":        selection.Reasoning,
		"confidence":       selection.Confidence,
	}
	p.sync(ctx, session)
	return chosen, true
}

// execute places the single order for the selected impact. Order failure of
// any kind is recorded as a failed TradeExecution and the session still
// seals as complete.
func (p *Pipeline) execute(ctx context.Context, session *domain.AnalysisSession, chosen domain.ImpactJudgment) {
	side := chosen.TradeDecision.Side
	price := clampPrice(chosen.TradeDecision.SuggestedPrice)
	amount := p.cfg.TradeSizeUSDC

	session.Steps = append(session.Steps, newStep(domain.StepExecuting, "Executing trade",
		fmt.Sprintf("Placing %s %s order on market %s", chosen.TradeDecision.Action, side, chosen.MarketID),
		domain.StepStatusProcessing))
	p.sync(ctx, session)

	var exec domain.TradeExecution
	token, ok := chosen.Market.TokenForSide(side)
	switch {
	case !ok:
		exec = failedExecution(chosen.MarketID, side, amount, price, domain.ErrMissingToken.Error())
	case p.venue == nil:
		exec = failedExecution(chosen.MarketID, side, amount, price, "venue not configured")
	default:
		cctx, cancel := p.remoteCtx(ctx)
		placed, err := p.venue.PlaceOrder(cctx, chosen.MarketID, side, amount, price, token)
		cancel()
		if err != nil {
			exec = failedExecution(chosen.MarketID, side, amount, price, err.Error())
		} else {
			exec = placed
		}
	}

	session.Trades = append(session.Trades, exec)

	step := lastStep(session)
	step.Data = map[string]any{"trade": exec}
	if exec.Status == domain.TradeStatusFailed {
		step.Status = domain.StepStatusError
		step.Description = "Order failed: " + exec.Error
		p.alert(ctx, "trade_failed", "Trade failed",
			fmt.Sprintf("%s %s on market %s: %s", chosen.TradeDecision.Action, side, chosen.MarketID, exec.Error))
	} else {
		step.Status = domain.StepStatusComplete
		step.Description = fmt.Sprintf("Order %s at %.2f for $%.2f", exec.Status, exec.Price, exec.Amount)
		p.alert(ctx, "trade_executed", "Trade executed",
			fmt.Sprintf("%s %s on market %s at %.2f for $%.2f", chosen.TradeDecision.Action, side, chosen.MarketID, exec.Price, exec.Amount))
	}
	p.sync(ctx, session)

	p.logger.InfoContext(ctx, "trade recorded",
		slog.String("session_id", session.ID),
		slog.String("market_id", exec.MarketID),
		slog.String("status", string(exec.Status)),
	)
}

// seal moves the session to its terminal status, appends the terminal step,
// publishes the final snapshot, and hands the sealed record to the audit log.
// Once sealed, no further mutation occurs.
func (p *Pipeline) seal(ctx context.Context, session *domain.AnalysisSession, status domain.SessionStatus) {
	now := time.Now().UTC()
	session.Status = status
	session.EndTime = &now

	title, desc := "Analysis complete", "Session finished"
	stepStatus := domain.StepStatusComplete
	if status == domain.SessionError {
		title, desc = "Analysis failed", "Session ended with an unrecoverable error"
		stepStatus = domain.StepStatusError
		p.alert(ctx, "session_error", "Session error",
			fmt.Sprintf("Session %s for @%s ended in error", session.ID, session.Event.Author.Handle))
	}
	session.Steps = append(session.Steps, newStep(domain.StepComplete, title, desc, stepStatus))

	p.sync(ctx, session)

	if p.audit != nil {
		if err := p.audit.Record(ctx, session.Clone()); err != nil {
			p.logger.WarnContext(ctx, "session audit record failed",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	p.logger.InfoContext(ctx, "session sealed",
		slog.String("session_id", session.ID),
		slog.String("status", string(status)),
		slog.Int("impacts", len(session.MarketImpacts)),
		slog.Int("trades", len(session.Trades)),
		slog.Duration("elapsed", now.Sub(session.StartTime)),
	)
}

// sync publishes the session's current state: an atomic store update plus a
// snapshot broadcast for observers.
func (p *Pipeline) sync(ctx context.Context, session *domain.AnalysisSession) {
	snapshot := session.Clone()
	if err := p.store.Update(snapshot); err != nil {
		p.logger.ErrorContext(ctx, "failed to update session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
	p.emit(ctx, bus.ChannelSession, snapshot)
}

// emit broadcasts a payload on the signal bus; broadcast failures are logged
// and never affect the pipeline.
func (p *Pipeline) emit(ctx context.Context, channel string, payload any) {
	if p.bus == nil {
		return
	}
	if err := bus.Emit(ctx, p.bus, channel, payload); err != nil {
		p.logger.WarnContext(ctx, "broadcast failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// alert forwards an operator notification when a notifier is configured.
func (p *Pipeline) alert(ctx context.Context, event, title, message string) {
	if p.notify == nil {
		return
	}
	if err := p.notify.Notify(ctx, event, title, message); err != nil {
		p.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// remoteCtx derives a bounded context for one oracle or venue call.
func (p *Pipeline) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.RemoteTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.RemoteTimeout)
}

func containsMarket(impacts []domain.ImpactJudgment, id string) bool {
	for _, imp := range impacts {
		if imp.MarketID == id {
			return true
		}
	}
	return false
}
