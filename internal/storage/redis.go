package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/world"
)

const (
	gameStateKeyPrefix = "gamestate:"
	turnLockKeyPrefix  = "turnlock:"
)

// RedisStorage keeps session snapshots as JSON blobs in Redis and
// serves world templates from a directory on disk.
type RedisStorage struct {
	client   *redis.Client
	worldDir string
	logger   *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

func NewRedisStorage(redisURL, worldDir string, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client:   redis.NewClient(&redis.Options{Addr: redisURL}),
		worldDir: worldDir,
		logger:   logger,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

// WaitForConnection blocks until Redis answers pings, for container
// startup ordering.
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	const maxRetries = 30
	const retryDelay = 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}
		r.logger.Info("Redis connection established")
		return nil
	}
	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) SaveGameState(ctx context.Context, id string, gs *state.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	if err := r.client.Set(ctx, gameStateKeyPrefix+id, data, 0).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", gameStateKeyPrefix+id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, id string) (*state.GameState, error) {
	data, err := r.client.Get(ctx, gameStateKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}
	var gs state.GameState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate %s: %w", id, err)
	}
	return &gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, gameStateKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListWorldTemplates(ctx context.Context) ([]*world.Template, error) {
	return world.LoadDir(r.worldDir)
}

func (r *RedisStorage) GetWorldTemplate(ctx context.Context, name string) (*world.Template, error) {
	// Template names come from the API; never let them escape the
	// world directory.
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid template name %q", name)
	}
	t, err := world.Load(filepath.Join(r.worldDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// AcquireTurnLock claims the session's turn lock with SET NX so
// overlapping turn requests are rejected instead of queued.
func (r *RedisStorage) AcquireTurnLock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, turnLockKeyPrefix+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	return ok, nil
}

func (r *RedisStorage) ReleaseTurnLock(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, turnLockKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to release turn lock: %w", err)
	}
	return nil
}
