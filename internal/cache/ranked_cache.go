package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockops/replenish/internal/domain"
)

const (
	rankedKeyPrefix     = "replenish:ranked"
	rankedScanBatchSize = 100
)

// RankedCache is the read-through cache in front of the ranked replenishment
// listing. It is an explicit dependency with an explicit TTL; callers bypass
// it with a force-refresh flag, and a completed recompute invalidates the
// tenant's entries.
type RankedCache interface {
	GetRanked(ctx context.Context, filter domain.RankedFilter) ([]domain.ReplenishmentRecord, bool, error)
	SetRanked(ctx context.Context, filter domain.RankedFilter, records []domain.ReplenishmentRecord) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}

type redisRankedCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRankedCache struct{}

func NewRankedCache(client *redis.Client, ttl time.Duration) RankedCache {
	if client == nil {
		return &noopRankedCache{}
	}
	return &redisRankedCache{client: client, ttl: ttl}
}

func NewNoopRankedCache() RankedCache {
	return &noopRankedCache{}
}

func (c *redisRankedCache) GetRanked(ctx context.Context, filter domain.RankedFilter) ([]domain.ReplenishmentRecord, bool, error) {
	payload, err := c.client.Get(ctx, buildRankedKey(filter)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var records []domain.ReplenishmentRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode ranked cache: %w", err)
	}

	return records, true, nil
}

func (c *redisRankedCache) SetRanked(ctx context.Context, filter domain.RankedFilter, records []domain.ReplenishmentRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode ranked cache: %w", err)
	}

	if err := c.client.Set(ctx, buildRankedKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRankedCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	prefix := fmt.Sprintf("%s:%s:", rankedKeyPrefix, tenantID)
	return deleteKeysWithPrefix(ctx, c.client, prefix, rankedScanBatchSize)
}

func (n *noopRankedCache) GetRanked(ctx context.Context, filter domain.RankedFilter) ([]domain.ReplenishmentRecord, bool, error) {
	return nil, false, nil
}

func (n *noopRankedCache) SetRanked(ctx context.Context, filter domain.RankedFilter, records []domain.ReplenishmentRecord) error {
	return nil
}

func (n *noopRankedCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	return nil
}

func buildRankedKey(filter domain.RankedFilter) string {
	return fmt.Sprintf("%s:%s:%s", rankedKeyPrefix, filter.TenantID, rankedFilterHash(filter))
}

func rankedFilterHash(filter domain.RankedFilter) string {
	parts := []string{}

	if filter.Date != "" {
		parts = append(parts, "date="+strings.TrimSpace(filter.Date))
	}
	if filter.Urgency != "" {
		parts = append(parts, "urgency="+strings.ToLower(string(filter.Urgency)))
	}
	if filter.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", filter.Limit))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
