// internal/personalization/store.go
// Document store adapter: Postgres JSONB for durable documents and the
// append-only interaction log, Redis for the hot per-user documents
// (anti-repetition cache, exploration metrics).

package personalization

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrStoreUnavailable = errors.New("preference store unavailable")

type Store interface {
	// Preference document
	ReadPreferences(ctx context.Context, userID int64) (*StoredPreferences, bool, error)
	WritePreferences(ctx context.Context, userID int64, prefs *StoredPreferences) error
	IncrementWeights(ctx context.Context, userID int64, colorDeltas, styleDeltas map[string]float64) error

	ClearWeightDeltas(ctx context.Context, userID int64) error

	// Interaction log (append-only, partitioned by kind)
	AppendInteraction(ctx context.Context, rec *InteractionRecord) error
	ReadInteractions(ctx context.Context, userID int64, kind InteractionKind, limit int) ([]*InteractionRecord, error)
	ActiveUserIDs(ctx context.Context, withinDays int) ([]int64, error)

	// Blocklist document
	ReadBlocklists(ctx context.Context, userID int64) (*Blocklists, bool, error)
	WriteBlocklists(ctx context.Context, userID int64, lists *Blocklists) error

	// Anti-repetition cache document
	ReadAntiRepetitionCache(ctx context.Context, userID int64) (*AntiRepetitionCache, bool, error)
	WriteAntiRepetitionCache(ctx context.Context, userID int64, cache *AntiRepetitionCache) error

	// Exploration metrics document
	ReadExplorationMetrics(ctx context.Context, userID int64) (*ExplorationMetrics, bool, error)
	WriteExplorationMetrics(ctx context.Context, userID int64, metrics *ExplorationMetrics) error
}

type documentStore struct {
	db    *sqlx.DB
	redis *redis.Client // optional; nil degrades to empty hot documents
}

func NewDocumentStore(db *sqlx.DB, redisClient *redis.Client) Store {
	return &documentStore{db: db, redis: redisClient}
}

const (
	antiRepKeyFmt     = "stylora:antirep:%d"
	explorationKeyFmt = "stylora:explore:%d"

	// Combinations are pruned at 30 days; the key TTL just keeps
	// abandoned users from accumulating in Redis.
	hotDocumentTTL = 45 * 24 * time.Hour

	writeAttempts    = 3
	writeBackoffBase = 50 * time.Millisecond
)

// withRetry retries transient write failures with exponential backoff.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		select {
		case <-time.After(writeBackoffBase << attempt):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

// Preference document

func (s *documentStore) ReadPreferences(ctx context.Context, userID int64) (*StoredPreferences, bool, error) {
	var raw []byte
	query := `SELECT doc FROM preference_documents WHERE user_id = $1`

	err := s.db.GetContext(ctx, &raw, query, userID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read preferences: %w", err)
	}

	var prefs StoredPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, false, fmt.Errorf("decode preferences: %w", err)
	}
	return &prefs, true, nil
}

func (s *documentStore) WritePreferences(ctx context.Context, userID int64, prefs *StoredPreferences) error {
	prefs.UpdatedAt = time.Now()
	doc, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	// Top-level JSONB merge keeps unknown fields written by other
	// writers instead of replacing the whole document.
	query := `
        INSERT INTO preference_documents (user_id, doc, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id)
        DO UPDATE SET doc = preference_documents.doc || EXCLUDED.doc, updated_at = NOW()
    `

	return withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, userID, doc)
		return err
	})
}

func (s *documentStore) IncrementWeights(ctx context.Context, userID int64, colorDeltas, styleDeltas map[string]float64) error {
	prefs, found, err := s.ReadPreferences(ctx, userID)
	if err != nil {
		return err
	}
	if !found {
		prefs = &StoredPreferences{}
	}
	if prefs.ColorWeights == nil {
		prefs.ColorWeights = map[string]float64{}
	}
	if prefs.StyleWeights == nil {
		prefs.StyleWeights = map[string]float64{}
	}

	for color, delta := range colorDeltas {
		prefs.ColorWeights[canonicalColor(color)] += delta
	}
	for style, delta := range styleDeltas {
		prefs.StyleWeights[canonicalStyle(style)] += delta
	}

	// Last-write-wins on concurrent increments is accepted: a missed
	// increment only biases ranking slightly and self-corrects on the
	// next full recomputation.
	return s.WritePreferences(ctx, userID, prefs)
}

// ClearWeightDeltas empties the real-time weight maps after a
// maintenance sweep so log-derived weights stay the single source of
// truth over time.
func (s *documentStore) ClearWeightDeltas(ctx context.Context, userID int64) error {
	return s.WritePreferences(ctx, userID, &StoredPreferences{
		ColorWeights: map[string]float64{},
		StyleWeights: map[string]float64{},
	})
}

// Interaction log

func (s *documentStore) AppendInteraction(ctx context.Context, rec *InteractionRecord) error {
	if err := validateInteraction(rec); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}

	query := `
        INSERT INTO interaction_log (id, user_id, kind, payload, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `

	return withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, rec.ID, rec.UserID, rec.Kind, payload, rec.CreatedAt)
		return err
	})
}

func (s *documentStore) ReadInteractions(ctx context.Context, userID int64, kind InteractionKind, limit int) ([]*InteractionRecord, error) {
	query := `
        SELECT payload FROM interaction_log
        WHERE user_id = $1 AND kind = $2
        ORDER BY created_at DESC
        LIMIT $3
    `

	rows, err := s.db.QueryxContext(ctx, query, userID, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("read interactions: %w", err)
	}
	defer rows.Close()

	var records []*InteractionRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		var rec InteractionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (s *documentStore) ActiveUserIDs(ctx context.Context, withinDays int) ([]int64, error) {
	query := `
        SELECT DISTINCT user_id FROM interaction_log
        WHERE created_at > NOW() - INTERVAL '1 day' * $1
    `

	var userIDs []int64
	if err := s.db.SelectContext(ctx, &userIDs, query, withinDays); err != nil {
		return nil, fmt.Errorf("read active users: %w", err)
	}
	return userIDs, nil
}

// validateInteraction enforces the kind/payload pairing before persistence.
// A rejected write surfaces to the caller: silently dropping a user action
// would corrupt the learning signal.
func validateInteraction(rec *InteractionRecord) error {
	if rec.UserID <= 0 {
		return fmt.Errorf("interaction validation: missing user id")
	}
	switch rec.Kind {
	case KindLiked, KindWorn:
		if rec.Outfit == nil {
			return fmt.Errorf("interaction validation: %s requires an outfit snapshot", rec.Kind)
		}
	case KindIgnoredSession:
		if len(rec.Outfits) < 2 {
			return fmt.Errorf("interaction validation: ignored session requires at least 2 outfits")
		}
	case KindShoppingClick:
		if rec.Platform == "" {
			return fmt.Errorf("interaction validation: shopping click requires a platform")
		}
	default:
		return fmt.Errorf("interaction validation: unknown kind %q", rec.Kind)
	}
	return nil
}

// Blocklist document

func (s *documentStore) ReadBlocklists(ctx context.Context, userID int64) (*Blocklists, bool, error) {
	var raw []byte
	query := `SELECT doc FROM blocklist_documents WHERE user_id = $1`

	err := s.db.GetContext(ctx, &raw, query, userID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blocklists: %w", err)
	}

	var lists Blocklists
	if err := json.Unmarshal(raw, &lists); err != nil {
		return nil, false, fmt.Errorf("decode blocklists: %w", err)
	}
	return &lists, true, nil
}

func (s *documentStore) WriteBlocklists(ctx context.Context, userID int64, lists *Blocklists) error {
	doc, err := json.Marshal(lists)
	if err != nil {
		return fmt.Errorf("encode blocklists: %w", err)
	}

	query := `
        INSERT INTO blocklist_documents (user_id, doc, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id)
        DO UPDATE SET doc = blocklist_documents.doc || EXCLUDED.doc, updated_at = NOW()
    `

	return withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, userID, doc)
		return err
	})
}

// Hot documents (Redis)

func (s *documentStore) ReadAntiRepetitionCache(ctx context.Context, userID int64) (*AntiRepetitionCache, bool, error) {
	if s.redis == nil {
		return nil, false, nil
	}

	raw, err := s.redis.Get(ctx, fmt.Sprintf(antiRepKeyFmt, userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read anti-repetition cache: %w", err)
	}

	var cache AntiRepetitionCache
	if err := json.Unmarshal(raw, &cache); err != nil {
		return nil, false, fmt.Errorf("decode anti-repetition cache: %w", err)
	}
	return &cache, true, nil
}

func (s *documentStore) WriteAntiRepetitionCache(ctx context.Context, userID int64, cache *AntiRepetitionCache) error {
	if s.redis == nil {
		return ErrStoreUnavailable
	}

	doc, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("encode anti-repetition cache: %w", err)
	}

	return withRetry(ctx, func() error {
		return s.redis.Set(ctx, fmt.Sprintf(antiRepKeyFmt, userID), doc, hotDocumentTTL).Err()
	})
}

func (s *documentStore) ReadExplorationMetrics(ctx context.Context, userID int64) (*ExplorationMetrics, bool, error) {
	if s.redis == nil {
		return nil, false, nil
	}

	raw, err := s.redis.Get(ctx, fmt.Sprintf(explorationKeyFmt, userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read exploration metrics: %w", err)
	}

	var metrics ExplorationMetrics
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return nil, false, fmt.Errorf("decode exploration metrics: %w", err)
	}
	return &metrics, true, nil
}

func (s *documentStore) WriteExplorationMetrics(ctx context.Context, userID int64, metrics *ExplorationMetrics) error {
	if s.redis == nil {
		return ErrStoreUnavailable
	}

	metrics.UpdatedAt = time.Now()
	doc, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode exploration metrics: %w", err)
	}

	return withRetry(ctx, func() error {
		return s.redis.Set(ctx, fmt.Sprintf(explorationKeyFmt, userID), doc, 0).Err()
	})
}
