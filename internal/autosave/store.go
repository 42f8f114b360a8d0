// Package autosave persists in-progress drafts. Redis holds the hot copy,
// written on every input event; a background worker drains a persist queue
// into PostgreSQL for durability. Restore prefers Redis and self-heals
// from PostgreSQL on a cache miss.
package autosave

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/config"
	"github.com/examforge/sessiond/internal/model"
)

// Store is the draft persistence contract. Restore never fails on a
// missing draft — it returns an empty one. Writes are last-write-wins.
type Store interface {
	SaveField(ctx context.Context, examID, email, questionID, value string) error
	Restore(ctx context.Context, examID, email string) (model.Draft, error)
	Clear(ctx context.Context, examID, email string) error
}

// DraftPayload is one queued field write, drained by the persist worker.
type DraftPayload struct {
	ExamID     string `json:"exam_id"`
	Email      string `json:"email"`
	QuestionID string `json:"q_id"`
	Answer     string `json:"answer"`
}

// RedisStore is the production Store: Redis hash per (exam, visitor) plus
// a persist queue. pool may be nil (no durable fallback, dev mode).
type RedisStore struct {
	rdb  *redis.Client
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client, pool *pgxpool.Pool, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb:  rdb,
		pool: pool,
		log:  log.With().Str("component", "autosave_store").Logger(),
	}
}

// SaveField writes one field to the draft hash and queues it for durable
// persistence.
func (s *RedisStore) SaveField(ctx context.Context, examID, email, questionID, value string) error {
	key := config.CacheKey.VisitorDraftKey(examID, email)
	if err := s.rdb.HSet(ctx, key, questionID, value).Err(); err != nil {
		return fmt.Errorf("autosave hset: %w", err)
	}

	payload, _ := json.Marshal(DraftPayload{
		ExamID:     examID,
		Email:      email,
		QuestionID: questionID,
		Answer:     value,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistDraftsQueue, payload).Err(); err != nil {
		// The hot copy is saved; losing one queue entry only delays
		// durability until the next write of the same field.
		s.log.Warn().Err(err).Str("exam_id", examID).Msg("Persist queue push failed")
	}
	return nil
}

// Restore returns the saved draft, or an empty draft when none exists.
// On a Redis miss it falls back to PostgreSQL and re-warms the hash.
func (s *RedisStore) Restore(ctx context.Context, examID, email string) (model.Draft, error) {
	key := config.CacheKey.VisitorDraftKey(examID, email)
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("autosave hgetall: %w", err)
	}
	if len(fields) > 0 {
		return model.Draft(fields), nil
	}

	if s.pool == nil {
		return model.Draft{}, nil
	}

	draft, err := s.loadDurable(ctx, examID, email)
	if err != nil {
		return nil, err
	}

	// Self-heal: put the durable copy back so the next restore is fast.
	if len(draft) > 0 {
		if err := s.rdb.HSet(ctx, key, map[string]string(draft)).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID).Msg("Draft cache re-warm failed")
		}
	}
	return draft, nil
}

// Clear drops the visitor's draft hash. The durable rows stay behind as
// an audit trail; a later Restore will re-warm from them.
func (s *RedisStore) Clear(ctx context.Context, examID, email string) error {
	return s.rdb.Del(ctx, config.CacheKey.VisitorDraftKey(examID, email)).Err()
}

func (s *RedisStore) loadDurable(ctx context.Context, examID, email string) (model.Draft, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, answer
		 FROM draft_answers
		 WHERE exam_id = $1 AND email = $2`, examID, email)
	if err != nil {
		return nil, fmt.Errorf("load durable draft: %w", err)
	}
	defer rows.Close()

	draft := model.Draft{}
	for rows.Next() {
		var qid, answer string
		if err := rows.Scan(&qid, &answer); err != nil {
			return nil, fmt.Errorf("scan durable draft: %w", err)
		}
		draft[qid] = answer
	}
	return draft, rows.Err()
}
