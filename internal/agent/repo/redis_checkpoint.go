package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// RedisCheckpointStore keeps the message history in a Redis list and the
// scratch fields as one JSON document, both expiring after ttl of inactivity.
type RedisCheckpointStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCheckpointStore(rdb redis.Cmdable, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{rdb: rdb, ttl: ttl}
}

func (r *RedisCheckpointStore) messagesKey(threadID string) string {
	return fmt.Sprintf("conversation:%s:messages", threadID)
}

func (r *RedisCheckpointStore) scratchKey(threadID string) string {
	return fmt.Sprintf("conversation:%s:scratch", threadID)
}

func (r *RedisCheckpointStore) Load(ctx context.Context, threadID string) (*model.ConversationState, error) {
	st := &model.ConversationState{}

	raw, err := r.rdb.Get(ctx, r.scratchKey(threadID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to load scratch state from redis")
		return nil, errx.WrapRedis(err)
	default:
		if err := json.Unmarshal(raw, st); err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to unmarshal scratch state")
			return nil, fmt.Errorf("unmarshal scratch state: %w", err)
		}
	}

	key := r.messagesKey(threadID)
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	st.Messages = make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		st.Messages = append(st.Messages, &m)
	}
	return st, nil
}

// Save appends only the messages added since prev and rewrites the scratch
// document, in one MULTI/EXEC. When next is not an extension of prev the list
// is rewritten.
func (r *RedisCheckpointStore) Save(ctx context.Context, threadID string, prev, next *model.ConversationState) error {
	if next == nil {
		return errors.New("nil conversation state")
	}

	var prevMsgs []*schema.Message
	if prev != nil {
		prevMsgs = prev.Messages
	}
	appended, rewrite := diffMessages(prevMsgs, next.Messages)
	if rewrite {
		appended = next.Messages
	}

	values := make([]any, 0, len(appended))
	for _, m := range appended {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, b)
	}

	scratch := *next
	scratch.Messages = nil
	doc, err := json.Marshal(&scratch)
	if err != nil {
		return fmt.Errorf("marshal scratch state: %w", err)
	}

	mk, sk := r.messagesKey(threadID), r.scratchKey(threadID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if rewrite {
			pipe.Del(ctx, mk)
		}
		if len(values) > 0 {
			pipe.RPush(ctx, mk, values...)
		}
		pipe.Set(ctx, sk, doc, r.ttl)
		// extend TTL on touch
		if r.ttl > 0 {
			pipe.Expire(ctx, mk, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to save conversation state to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisCheckpointStore) Clear(ctx context.Context, threadID string) error {
	if err := r.rdb.Del(ctx, r.messagesKey(threadID), r.scratchKey(threadID)).Err(); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// diffMessages returns the tail of next beyond prev, or rewrite=true when
// next does not start with prev.
func diffMessages(prev, next []*schema.Message) (appended []*schema.Message, rewrite bool) {
	if len(next) < len(prev) {
		return nil, true
	}
	for i := range prev {
		if prev[i] != next[i] {
			return nil, true
		}
	}
	return next[len(prev):], false
}

var _ model.CheckpointStore = (*RedisCheckpointStore)(nil)
