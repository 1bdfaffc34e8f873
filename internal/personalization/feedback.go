// internal/personalization/feedback.go
// Single entry point for every learning signal. All weight constants
// live in aggregator.go so the real-time path and the full recomputation
// agree on what an action is worth.

package personalization

import (
	"context"
	"fmt"
	"time"
)

// FeedbackEvent is one user action dispatched by kind. Exploratory marks
// actions on position-3 (exploration) picks so the exploration controller
// only learns from its own experiments.
type FeedbackEvent struct {
	Kind        InteractionKind
	Outfit      *OutfitSnapshot
	Outfits     []OutfitSnapshot
	Platform    string
	Exploratory bool
	At          time.Time
}

// ApplyFeedback records the interaction, applies the real-time weight
// increments, and fans the event out to the blocklist and exploration
// components. The local preference snapshot is invalidated before any
// write so a concurrent read cannot repopulate it with stale data.
func (e *Engine) ApplyFeedback(ctx context.Context, userID int64, event FeedbackEvent) error {
	e.snapshots.Remove(userID)

	at := event.At
	if at.IsZero() {
		at = e.now()
	}

	rec := &InteractionRecord{
		UserID:    userID,
		Kind:      event.Kind,
		Outfit:    event.Outfit,
		Outfits:   event.Outfits,
		Platform:  event.Platform,
		CreatedAt: at,
	}
	if err := e.store.AppendInteraction(ctx, rec); err != nil {
		return fmt.Errorf("record %s: %w", event.Kind, err)
	}
	RecordFeedback(string(event.Kind))

	switch event.Kind {
	case KindLiked:
		return e.applySignal(ctx, userID, event, weightLiked, OutcomeLiked)
	case KindWorn:
		return e.applySignal(ctx, userID, event, weightWorn, OutcomeWorn)
	case KindIgnoredSession:
		return e.applyIgnoredSession(ctx, userID, event)
	case KindShoppingClick:
		// Platform affinity is derived from the log alone.
		return nil
	default:
		return fmt.Errorf("unknown feedback kind %q", event.Kind)
	}
}

func (e *Engine) applySignal(ctx context.Context, userID int64, event FeedbackEvent, signal float64, outcome string) error {
	if event.Outfit == nil {
		return fmt.Errorf("%s feedback requires an outfit snapshot", event.Kind)
	}

	colorDeltas := map[string]float64{}
	for _, c := range event.Outfit.Colors {
		colorDeltas[c] += signal
	}
	styleDeltas := map[string]float64{}
	if event.Outfit.Style != "" {
		styleDeltas[event.Outfit.Style] = signal
	}

	if err := e.store.IncrementWeights(ctx, userID, colorDeltas, styleDeltas); err != nil {
		return fmt.Errorf("apply %s weights: %w", event.Kind, err)
	}

	if event.Exploratory {
		if err := e.exploration.RecordOutcome(ctx, userID, outcome); err != nil {
			// Exploration counters are advisory; a lost outcome only
			// slows adaptation.
			e.logger.Warn().Err(err).Int64("user_id", userID).Msg("exploration outcome not recorded")
		}
	}
	return nil
}

func (e *Engine) applyIgnoredSession(ctx context.Context, userID int64, event FeedbackEvent) error {
	colorDeltas := map[string]float64{}
	styleDeltas := map[string]float64{}
	for _, outfit := range event.Outfits {
		for _, c := range outfit.Colors {
			colorDeltas[c] += weightIgnored
		}
		if outfit.Style != "" {
			styleDeltas[outfit.Style] += weightIgnored
		}
	}
	if err := e.store.IncrementWeights(ctx, userID, colorDeltas, styleDeltas); err != nil {
		return fmt.Errorf("apply ignore weights: %w", err)
	}

	return e.blocklists.AnalyzeIgnoredSession(ctx, userID, event.Outfits)
}

// Feedback hooks exposed to the recommendation orchestrator.

func (e *Engine) OnLike(ctx context.Context, userID int64, outfit *OutfitSnapshot, exploratory bool) error {
	return e.ApplyFeedback(ctx, userID, FeedbackEvent{Kind: KindLiked, Outfit: outfit, Exploratory: exploratory})
}

func (e *Engine) OnWear(ctx context.Context, userID int64, outfit *OutfitSnapshot, exploratory bool) error {
	return e.ApplyFeedback(ctx, userID, FeedbackEvent{Kind: KindWorn, Outfit: outfit, Exploratory: exploratory})
}

func (e *Engine) OnIgnoreSession(ctx context.Context, userID int64, outfits []OutfitSnapshot) error {
	return e.ApplyFeedback(ctx, userID, FeedbackEvent{Kind: KindIgnoredSession, Outfits: outfits})
}

func (e *Engine) OnShoppingClick(ctx context.Context, userID int64, platform string, outfit *OutfitSnapshot) error {
	return e.ApplyFeedback(ctx, userID, FeedbackEvent{Kind: KindShoppingClick, Platform: platform, Outfit: outfit})
}
