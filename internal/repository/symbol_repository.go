package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yourorg/symbol-directory/internal/model"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Key layout shared with the previous deployment and the downstream ingestion
// workers. Must stay bit-exact.
const (
	worklistKey     = "dtn:ingestion:symbols"
	systemConfigKey = "dtn:system:config"
	shardKeyPrefix  = "symbols:"
	shardKeyPattern = "symbols:*:*"
)

// ShardKey builds the storage key for one (exchange, securityType) partition
func ShardKey(exchange, securityType string) string {
	return fmt.Sprintf("%s%s:%s", shardKeyPrefix, exchange, securityType)
}

// SymbolRepository owns the partitioned symbol corpus, the ingestion worklist
// and the system-config aggregate. Every operation is a backend round trip;
// there is no cache layer.
type SymbolRepository struct {
	db     *redis.Client
	logger *zap.Logger
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(db *redis.Client, logger *zap.Logger) *SymbolRepository {
	return &SymbolRepository{
		db:     db,
		logger: logger,
	}
}

// GetWorklist returns the ingestion worklist, or an empty sequence if unset
func (r *SymbolRepository) GetWorklist(ctx context.Context) ([]model.SymbolRecord, error) {
	data, err := r.db.Get(ctx, worklistKey).Bytes()
	if err == redis.Nil {
		return []model.SymbolRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion worklist: %w", err)
	}

	var records []model.SymbolRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode ingestion worklist: %w", err)
	}
	return records, nil
}

// SetWorklist overwrites the ingestion worklist
func (r *SymbolRepository) SetWorklist(ctx context.Context, records []model.SymbolRecord) error {
	if records == nil {
		records = []model.SymbolRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode ingestion worklist: %w", err)
	}
	if err := r.db.Set(ctx, worklistKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store ingestion worklist: %w", err)
	}
	return nil
}

// GetConfig returns the stored system configuration, or the documented
// defaults if nothing has been stored. Absence is not an error.
func (r *SymbolRepository) GetConfig(ctx context.Context) (model.SystemConfig, error) {
	data, err := r.db.Get(ctx, systemConfigKey).Bytes()
	if err == redis.Nil {
		return model.DefaultSystemConfig(), nil
	}
	if err != nil {
		return model.SystemConfig{}, fmt.Errorf("failed to get system config: %w", err)
	}

	var cfg model.SystemConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.SystemConfig{}, fmt.Errorf("failed to decode system config: %w", err)
	}
	return cfg, nil
}

// SetConfig replaces the system configuration as a whole object
func (r *SymbolRepository) SetConfig(ctx context.Context, cfg model.SystemConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode system config: %w", err)
	}
	if err := r.db.Set(ctx, systemConfigKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store system config: %w", err)
	}
	return nil
}

// ShardKeys lists the corpus partitions matching the optional exchange and
// security-type filters. Empty filters match everything; filter comparison is
// case-insensitive. This is the pruning step that lets search skip shards it
// can never match.
func (r *SymbolRepository) ShardKeys(ctx context.Context, exchange, securityType string) ([]string, error) {
	keys, err := r.db.Keys(ctx, shardKeyPattern).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate shard keys: %w", err)
	}

	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		keyExchange, keySecurityType := parts[1], parts[2]

		if exchange != "" && !strings.EqualFold(keyExchange, exchange) {
			continue
		}
		if securityType != "" && !strings.EqualFold(keySecurityType, securityType) {
			continue
		}
		filtered = append(filtered, key)
	}
	return filtered, nil
}

// LoadShard reads one shard's full record sequence. Returns an empty sequence
// if the shard does not exist.
func (r *SymbolRepository) LoadShard(ctx context.Context, key string) ([]model.SymbolRecord, error) {
	data, err := r.db.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return []model.SymbolRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shard %q: %w", key, err)
	}

	var records []model.SymbolRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode shard %q: %w", key, err)
	}
	return records, nil
}

// StoreShard writes one (exchange, securityType) partition as a whole. Callers
// must ensure every record carries the shard's exchange and security type; the
// store does not enforce this on write.
func (r *SymbolRepository) StoreShard(ctx context.Context, exchange, securityType string, records []model.SymbolRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode shard %s/%s: %w", exchange, securityType, err)
	}
	if err := r.db.Set(ctx, ShardKey(exchange, securityType), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store shard %s/%s: %w", exchange, securityType, err)
	}
	return nil
}
