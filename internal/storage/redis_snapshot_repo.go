package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/annel0/al-spectator/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisSnapshotRepo хранит снимки вкладок в Redis. Значения - JSON,
// сжатый zstd.
type RedisSnapshotRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей; 0 - без срока
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "spectator:tab:",
		TTL:       time.Hour,
	}
}

// NewRedisSnapshotRepo подключается к Redis и проверяет соединение
func NewRedisSnapshotRepo(ctx context.Context, config *RedisConfig) (*RedisSnapshotRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultRedisConfig().KeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🔴 Connected to Redis at %s", config.Addr)
	return &RedisSnapshotRepo{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (r *RedisSnapshotRepo) key(tab string) string {
	return r.keyPrefix + tab
}

// Save записывает снимок одной командой SET
func (r *RedisSnapshotRepo) Save(ctx context.Context, snap *TabSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(snap.Tab), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", snap.Tab, err)
	}
	return nil
}

// SaveBatch записывает снимки через pipeline
func (r *RedisSnapshotRepo) SaveBatch(ctx context.Context, snaps []*TabSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, snap := range snaps {
		data, err := encodeSnapshot(snap)
		if err != nil {
			logging.Warn("⚠️ Failed to encode snapshot for %s: %v", snap.Tab, err)
			continue
		}
		pipe.Set(ctx, r.key(snap.Tab), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Load читает и распаковывает снимок
func (r *RedisSnapshotRepo) Load(ctx context.Context, tab string) (*TabSnapshot, error) {
	data, err := r.client.Get(ctx, r.key(tab)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", tab, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", tab, err)
	}
	return decodeSnapshot(data)
}

// Delete удаляет снимок
func (r *RedisSnapshotRepo) Delete(ctx context.Context, tab string) error {
	return r.client.Del(ctx, r.key(tab)).Err()
}

// List обходит ключи через SCAN
func (r *RedisSnapshotRepo) List(ctx context.Context) ([]string, error) {
	var tabs []string
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		tabs = append(tabs, strings.TrimPrefix(iter.Val(), r.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(tabs)
	return tabs, nil
}

// Close закрывает соединение с Redis
func (r *RedisSnapshotRepo) Close() error {
	return r.client.Close()
}
