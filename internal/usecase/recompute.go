package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/ports"
)

const defaultClassifierTimeout = 3 * time.Second

var tracer = otel.Tracer("SegmentCompass/usecase")

// SkipReason explains why a recompute stopped before tier evaluation.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipNoEvents    SkipReason = "no_events"
	SkipTriggerGate SkipReason = "trigger_gate"
	SkipClassifier  SkipReason = "classifier_unavailable"
	SkipReconciled  SkipReason = "ledger_reconciled"
)

// ReasonReconciled marks a ledger entry appended for a tier change whose
// original entry was never written.
const ReasonReconciled = "reconciled"

// Outcome reports what one recompute did.
type Outcome struct {
	CustomerID string
	Features   domain.FeatureVector
	Aggregate  Aggregate
	Skipped    SkipReason
	Evaluated  bool
	Decision   Decision
	Transition *domain.TransitionRecord
}

// RecomputerDeps wires all driven adapters into the recompute orchestrator.
type RecomputerDeps struct {
	Events     ports.EventSource
	Recorder   ports.EventRecorder
	Features   ports.FeatureStore
	Tiers      ports.TierStore
	Ledger     ports.TransitionLedger
	Profiles   ports.ProfileStore
	Tx         ports.Transactor
	Classifier ports.Classifier
	// Locker serializes recomputes per customer. Callers that leave it nil
	// must guarantee a single writer per customer themselves.
	Locker   ports.Locker
	Notifier ports.TransitionNotifier
	Policy   *GuardrailPolicy

	ClassifierTimeout time.Duration
	Clock             func() time.Time
	NewID             func() string
	Logger            *slog.Logger
}

// Recomputer is the tier recompute entry point.
type Recomputer struct {
	aggregator        *Aggregator
	recorder          ports.EventRecorder
	features          ports.FeatureStore
	tiers             ports.TierStore
	ledger            ports.TransitionLedger
	profiles          ports.ProfileStore
	tx                ports.Transactor
	classifier        ports.Classifier
	locker            ports.Locker
	notifier          ports.TransitionNotifier
	policy            *GuardrailPolicy
	classifierTimeout time.Duration
	now               func() time.Time
	newID             func() string
	logger            *slog.Logger
}

// NewRecomputer constructs the orchestration component.
func NewRecomputer(deps RecomputerDeps) *Recomputer {
	r := &Recomputer{
		aggregator:        NewAggregator(deps.Events),
		recorder:          deps.Recorder,
		features:          deps.Features,
		tiers:             deps.Tiers,
		ledger:            deps.Ledger,
		profiles:          deps.Profiles,
		tx:                deps.Tx,
		classifier:        deps.Classifier,
		locker:            deps.Locker,
		notifier:          deps.Notifier,
		policy:            deps.Policy,
		classifierTimeout: deps.ClassifierTimeout,
		now:               deps.Clock,
		newID:             deps.NewID,
		logger:            deps.Logger,
	}
	if r.policy == nil {
		r.policy = NewGuardrailPolicy(DefaultThresholds())
	}
	if r.classifierTimeout <= 0 {
		r.classifierTimeout = defaultClassifierTimeout
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Recompute rebuilds the feature vector of a customer from the full purchase
// history and, when the trigger gate opens, runs the guardrailed tier decision.
// It is idempotent on quiescent input and safe to retry after any error.
func (r *Recomputer) Recompute(ctx context.Context, customerID string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "tier.recompute",
		trace.WithAttributes(attribute.String("customer.id", customerID)))
	defer span.End()

	out, err := r.recompute(ctx, customerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}

	span.SetAttributes(
		attribute.String("recompute.skipped", string(out.Skipped)),
		attribute.Bool("recompute.transition", out.Transition != nil),
	)
	return out, nil
}

func (r *Recomputer) recompute(ctx context.Context, customerID string) (Outcome, error) {
	if customerID == "" {
		return Outcome{}, fmt.Errorf("customer id is empty")
	}
	if r.features == nil || r.tiers == nil || r.ledger == nil {
		return Outcome{}, fmt.Errorf("recomputer stores are not configured")
	}

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, customerID)
		if err != nil {
			return Outcome{}, fmt.Errorf("lock customer %s: %w", customerID, err)
		}
		defer unlock()
	}

	out := Outcome{CustomerID: customerID}

	agg, err := r.aggregator.Aggregate(ctx, customerID)
	if errors.Is(err, domain.ErrNoEvents) {
		out.Skipped = SkipNoEvents
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("aggregate customer %s: %w", customerID, err)
	}
	out.Aggregate = agg

	fv, found, err := r.features.GetFeatures(ctx, customerID)
	if err != nil {
		return out, fmt.Errorf("load features %s: %w", customerID, err)
	}
	if !found {
		r.logger.Debug("feature vector missing, using defaults", "customer_id", customerID)
		fv = domain.DefaultFeatureVector(customerID)
	}

	now := r.now()
	fv.CustomerID = customerID
	fv.R = agg.RecencyDays(now)
	fv.F = agg.EventCount
	fv.M = agg.MonetarySum
	fv.UpdatedAt = now

	if err := r.features.UpsertFeatures(ctx, fv); err != nil {
		return out, &domain.PersistenceError{Op: "feature vector", Err: err}
	}
	out.Features = fv

	current, found, err := r.tiers.CurrentTier(ctx, customerID)
	if err != nil {
		return out, fmt.Errorf("load tier %s: %w", customerID, err)
	}
	oldTier := domain.TierNew
	if found {
		oldTier = current.Tier
	}

	latest, err := r.ledger.Transitions(ctx, customerID, 1)
	if err != nil {
		return out, fmt.Errorf("load latest transition %s: %w", customerID, err)
	}
	if rec, ok := r.missingTransition(current, found, latest, agg, now); ok {
		if err := r.appendLedger(ctx, rec); err != nil {
			return out, err
		}
		out.Skipped = SkipReconciled
		out.Transition = &rec
		r.logger.Warn("tier assignment had no ledger entry, reconciled", "customer_id", customerID,
			"old_tier", rec.OldTier.String(), "new_tier", rec.NewTier.String())
		return out, nil
	}

	if !r.policy.ShouldEvaluate(agg.EventCount, agg.MonetarySum) {
		out.Skipped = SkipTriggerGate
		r.logger.Debug("trigger gate closed", "customer_id", customerID,
			"event_count", agg.EventCount, "monetary_sum", agg.MonetarySum)
		return out, nil
	}

	decision, ok := r.policy.ColdStart(oldTier)
	if !ok {
		pred, err := r.predict(ctx, fv)
		if err != nil {
			r.logger.Warn("classifier degraded, tier evaluation skipped",
				"customer_id", customerID, "error", err)
			out.Skipped = SkipClassifier
			return out, nil
		}

		last, hasUpgrade, err := r.ledger.LastTransitionInto(ctx, customerID, UpgradeTiers()...)
		if err != nil {
			return out, fmt.Errorf("load last upgrade %s: %w", customerID, err)
		}
		in := GuardInput{
			Old:         oldTier,
			Predicted:   pred.Tier,
			Confidence:  pred.Confidence,
			RecencyDays: fv.R,
			Now:         now,
		}
		if hasUpgrade {
			in.LastUpgradeAt = last.Timestamp
		}
		if len(latest) > 0 && latest[0].EventCount == agg.EventCount {
			in.NoNewActivity = true
		}
		decision = r.policy.Decide(in)
	}

	out.Evaluated = true
	out.Decision = decision

	if !decision.Accepted {
		r.logger.Debug("transition rejected", "customer_id", customerID,
			"old_tier", oldTier.String(), "predicted", decision.Predicted.String(),
			"confidence", decision.Confidence, "reason", string(decision.Reason))
		return out, nil
	}

	rec := domain.TransitionRecord{
		ID:          r.newID(),
		CustomerID:  customerID,
		OldTier:     decision.From,
		NewTier:     decision.To,
		Confidence:  decision.Confidence,
		EventCount:  agg.EventCount,
		MonetarySum: agg.MonetarySum,
		Reason:      string(decision.Reason),
		Timestamp:   now,
	}

	if err := r.commit(ctx, rec); err != nil {
		return out, err
	}
	out.Transition = &rec

	r.logger.Info("tier transition applied", "customer_id", customerID,
		"old_tier", rec.OldTier.String(), "new_tier", rec.NewTier.String(),
		"confidence", rec.Confidence, "reason", rec.Reason)

	if r.notifier != nil {
		if err := r.notifier.NotifyTransition(ctx, rec); err != nil {
			r.logger.Warn("transition notification failed", "customer_id", customerID, "error", err)
		}
	}

	return out, nil
}

// commit writes tier, ledger entry and profile in that order, inside one
// transaction when the store supports it.
func (r *Recomputer) commit(ctx context.Context, rec domain.TransitionRecord) error {
	write := func(ctx context.Context) error {
		err := r.tiers.SetTier(ctx, domain.TierAssignment{
			CustomerID: rec.CustomerID,
			Tier:       rec.NewTier,
			UpdatedAt:  rec.Timestamp,
		})
		if err != nil {
			return &domain.PersistenceError{Op: "tier assignment", Err: err}
		}
		if err := r.ledger.AppendTransition(ctx, rec); err != nil {
			return &domain.PersistenceError{Op: "transition ledger", Err: err}
		}
		if r.profiles != nil {
			profile := domain.ProfileFor(rec.CustomerID, rec.NewTier, rec.Timestamp)
			if err := r.profiles.UpsertProfile(ctx, profile); err != nil {
				return &domain.PersistenceError{Op: "customer profile", Err: err}
			}
		}
		return nil
	}

	if r.tx == nil {
		return write(ctx)
	}
	return r.tx.InTx(ctx, write)
}

// missingTransition detects a tier assignment that is ahead of the ledger,
// left behind when a commit stored the tier but failed on the ledger. The
// returned record covers that change so the next evaluation starts from a
// consistent history.
func (r *Recomputer) missingTransition(current domain.TierAssignment, found bool, latest []domain.TransitionRecord, agg Aggregate, now time.Time) (domain.TransitionRecord, bool) {
	if !found {
		return domain.TransitionRecord{}, false
	}

	ledgerTier := domain.TierNew
	if len(latest) > 0 {
		ledgerTier = latest[0].NewTier
	}
	if ledgerTier == current.Tier {
		return domain.TransitionRecord{}, false
	}

	at := current.UpdatedAt
	if at.IsZero() || (len(latest) > 0 && at.Before(latest[0].Timestamp)) {
		at = now
	}
	return domain.TransitionRecord{
		ID:          r.newID(),
		CustomerID:  agg.CustomerID,
		OldTier:     ledgerTier,
		NewTier:     current.Tier,
		EventCount:  agg.EventCount,
		MonetarySum: agg.MonetarySum,
		Reason:      ReasonReconciled,
		Timestamp:   at,
	}, true
}

// appendLedger writes a ledger entry and the matching profile without
// touching the tier assignment.
func (r *Recomputer) appendLedger(ctx context.Context, rec domain.TransitionRecord) error {
	write := func(ctx context.Context) error {
		if err := r.ledger.AppendTransition(ctx, rec); err != nil {
			return &domain.PersistenceError{Op: "transition ledger", Err: err}
		}
		if r.profiles != nil {
			profile := domain.ProfileFor(rec.CustomerID, rec.NewTier, rec.Timestamp)
			if err := r.profiles.UpsertProfile(ctx, profile); err != nil {
				return &domain.PersistenceError{Op: "customer profile", Err: err}
			}
		}
		return nil
	}

	if r.tx == nil {
		return write(ctx)
	}
	return r.tx.InTx(ctx, write)
}

// predict calls the classifier under its own deadline and normalizes failures
// into the classifier error taxonomy.
func (r *Recomputer) predict(ctx context.Context, fv domain.FeatureVector) (domain.Prediction, error) {
	return classify(ctx, r.classifier, r.classifierTimeout, fv)
}

func classify(ctx context.Context, c ports.Classifier, timeout time.Duration, fv domain.FeatureVector) (domain.Prediction, error) {
	if c == nil {
		return domain.Prediction{}, domain.ErrClassifierUnavailable
	}

	ctx, span := tracer.Start(ctx, "tier.classify")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pred, err := c.Predict(callCtx, fv)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.Prediction{}, fmt.Errorf("%w: %v", domain.ErrClassifierTimeout, err)
		}
		if domain.IsClassifierDegraded(err) {
			return domain.Prediction{}, err
		}
		return domain.Prediction{}, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	if err := pred.Validate(); err != nil {
		span.RecordError(err)
		return domain.Prediction{}, err
	}

	span.SetAttributes(
		attribute.String("prediction.tier", pred.Tier.String()),
		attribute.Float64("prediction.confidence", pred.Confidence),
	)
	return pred, nil
}

// RecordPurchase appends a purchase event and synchronously recomputes the customer.
func (r *Recomputer) RecordPurchase(ctx context.Context, ev domain.Event) (Outcome, error) {
	if r.recorder == nil {
		return Outcome{}, fmt.Errorf("event recorder is not configured")
	}

	if ev.ID == "" {
		ev.ID = r.newID()
	}
	if ev.Type == "" {
		ev.Type = domain.EventPurchase
	}
	if ev.Quantity == 0 {
		ev.Quantity = 1
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}
	if r.tiers != nil {
		if current, found, err := r.tiers.CurrentTier(ctx, ev.CustomerID); err == nil && found {
			ev.TierAtEvent = current.Tier
		}
	}

	if err := ev.Validate(); err != nil {
		return Outcome{}, err
	}
	if err := r.recorder.RecordEvent(ctx, ev); err != nil {
		return Outcome{}, &domain.PersistenceError{Op: "event", Err: err}
	}

	return r.Recompute(ctx, ev.CustomerID)
}
