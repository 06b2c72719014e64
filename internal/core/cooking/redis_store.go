package cooking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultRedisPrefix 會話鍵的預設前綴
const DefaultRedisPrefix = "recipe:session:"

var _ Store = (*RedisStore)(nil)

// RedisStore 以 Redis 保存會話，值為 JSON
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore 創建 Redis 會話儲存，ttl 為 0 表示不過期
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis 建立 Redis 連線並測試
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Save 寫入會話
func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	data, err := common.ToJSON(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	common.LogDebug("會話已寫入 Redis",
		zap.String("session_id", session.ID),
		zap.Stringer("state", session.State),
	)
	return nil
}

// Load 讀取會話
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := common.ParseJSONBytes(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete 刪除會話
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return common.ErrSessionNotFound
	}
	return nil
}

// ListActive 掃描前綴下所有進行中的會話
func (s *RedisStore) ListActive(ctx context.Context) ([]*Session, error) {
	var out []*Session
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		sess, err := s.Load(ctx, iter.Val()[len(s.prefix):])
		if err != nil {
			if errors.Is(err, common.ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		if sess.Active() {
			out = append(out, sess)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return out, nil
}

// key 生成會話鍵
func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
