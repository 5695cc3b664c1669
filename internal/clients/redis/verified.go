package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/grammar-annotation-backend/internal/platform/envutil"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

// VerifiedStore keeps, per question, the knowledge point ids a reviewer has
// confirmed, and broadcasts annotation events on a pub/sub channel.
type VerifiedStore interface {
	Verified(ctx context.Context, questionID string) ([]string, error)
	MarkVerified(ctx context.Context, questionID string, kpIDs ...string) error
	Unmark(ctx context.Context, questionID string, kpIDs ...string) error
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Event is the JSON payload published on the annotation channel.
type Event struct {
	Type             string    `json:"type"`
	QuestionID       string    `json:"question_id"`
	KnowledgePointID string    `json:"knowledge_point_id,omitempty"`
	Decision         string    `json:"decision,omitempty"`
	At               time.Time `json:"at"`
}

const (
	EventApplied  = "annotation.applied"
	EventAccepted = "annotation.accepted"
	EventRejected = "annotation.rejected"
)

type verifiedStore struct {
	log     *logger.Logger
	rdb     *goredis.Client
	prefix  string
	channel string
	ttl     time.Duration
}

// NewVerifiedStore connects to REDIS_ADDR. It returns nil, nil when the
// address is unset so the service runs without external validation.
func NewVerifiedStore(log *logger.Logger) (VerifiedStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewVerifiedStoreFromClient(rdb, log), nil
}

func NewVerifiedStoreFromClient(rdb *goredis.Client, log *logger.Logger) VerifiedStore {
	return &verifiedStore{
		log:     log.With("service", "RedisVerifiedStore"),
		rdb:     rdb,
		prefix:  envutil.String("REDIS_VERIFIED_PREFIX", "annotation:verified:"),
		channel: envutil.String("REDIS_CHANNEL", "annotation-events"),
		ttl:     envutil.Seconds("REDIS_VERIFIED_TTL_SECONDS", 0),
	}
}

func (s *verifiedStore) key(questionID string) string {
	return s.prefix + strings.TrimSpace(questionID)
}

func (s *verifiedStore) Verified(ctx context.Context, questionID string) ([]string, error) {
	if s == nil || s.rdb == nil {
		return nil, fmt.Errorf("redis verified store not initialized")
	}
	if strings.TrimSpace(questionID) == "" {
		return nil, nil
	}
	return s.rdb.SMembers(ctx, s.key(questionID)).Result()
}

func (s *verifiedStore) MarkVerified(ctx context.Context, questionID string, kpIDs ...string) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis verified store not initialized")
	}
	members := toMembers(kpIDs)
	if strings.TrimSpace(questionID) == "" || len(members) == 0 {
		return nil
	}
	key := s.key(questionID)
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *verifiedStore) Unmark(ctx context.Context, questionID string, kpIDs ...string) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis verified store not initialized")
	}
	members := toMembers(kpIDs)
	if strings.TrimSpace(questionID) == "" || len(members) == 0 {
		return nil
	}
	return s.rdb.SRem(ctx, s.key(questionID), members...).Err()
}

func (s *verifiedStore) Publish(ctx context.Context, ev Event) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis verified store not initialized")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, raw).Err()
}

func (s *verifiedStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func toMembers(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
