package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cocinarte/internal/logger"
	"cocinarte/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	classListPrefix = "classes:list:"
	classListKeys   = "classes:list:keys"
	adminPrefix     = "auth:admin:"
)

type Config struct {
	Addr         string
	Password     string
	DB           int
	ClassListTTL time.Duration
}

// ValkeyClient caches public class pages and admin decisions in Valkey/Redis
type ValkeyClient struct {
	client       *redis.Client
	classListTTL time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return newValkeyClient(rdb, cfg.ClassListTTL), nil
}

func newValkeyClient(rdb *redis.Client, ttl time.Duration) *ValkeyClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ValkeyClient{client: rdb, classListTTL: ttl}
}

// GetClassList returns a cached catalog page. Misses and errors both report false.
func (v *ValkeyClient) GetClassList(ctx context.Context, key string) ([]models.ListClassesResponseItem, bool) {
	raw, err := v.client.Get(ctx, classListPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithContext(ctx).Warn("Class list cache lookup failed", "error", err, "key", key)
		}
		return nil, false
	}

	var items []models.ListClassesResponseItem
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.WithContext(ctx).Warn("Corrupt class list cache entry", "error", err, "key", key)
		return nil, false
	}
	return items, true
}

func (v *ValkeyClient) SetClassList(ctx context.Context, key string, items []models.ListClassesResponseItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode class list: %w", err)
	}

	pipe := v.client.TxPipeline()
	pipe.Set(ctx, classListPrefix+key, raw, v.classListTTL)
	pipe.SAdd(ctx, classListKeys, classListPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache class list: %w", err)
	}
	return nil
}

// InvalidateClassLists drops every cached catalog page
func (v *ValkeyClient) InvalidateClassLists(ctx context.Context) error {
	keys, err := v.client.SMembers(ctx, classListKeys).Result()
	if err != nil {
		return fmt.Errorf("failed to read cached class list keys: %w", err)
	}

	keys = append(keys, classListKeys)
	if err := v.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate class lists: %w", err)
	}
	return nil
}

func (v *ValkeyClient) GetAdminFlag(ctx context.Context, email string) (bool, bool, error) {
	val, err := v.client.Get(ctx, adminPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("admin cache lookup error: %w", err)
	}
	return val == "1", true, nil
}

func (v *ValkeyClient) SetAdminFlag(ctx context.Context, email string, isAdmin bool, ttl time.Duration) error {
	val := "0"
	if isAdmin {
		val = "1"
	}
	return v.client.Set(ctx, adminPrefix+email, val, ttl).Err()
}

// ForgetAdmin drops a cached decision, e.g. after the allow-list changed
func (v *ValkeyClient) ForgetAdmin(ctx context.Context, email string) error {
	return v.client.Del(ctx, adminPrefix+email).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
