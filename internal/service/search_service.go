package service

import (
	"context"
	"strings"

	"github.com/yourorg/symbol-directory/internal/model"
	"github.com/yourorg/symbol-directory/internal/pool"
	"github.com/yourorg/symbol-directory/internal/repository"

	"go.uber.org/zap"
)

// SearchService answers substring search queries across the partitioned
// corpus by scattering per-shard filtering over the worker pool and gathering
// the results
type SearchService struct {
	symbolRepo *repository.SymbolRepository
	workers    *pool.Pool
	logger     *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(symbolRepo *repository.SymbolRepository, workers *pool.Pool, logger *zap.Logger) *SearchService {
	return &SearchService{
		symbolRepo: symbolRepo,
		workers:    workers,
		logger:     logger,
	}
}

// Search prunes the corpus to the shards matching the exchange and
// security-type filters, fans the substring filtering out across the worker
// pool, and merges the results in shard-enumeration order with first-wins
// deduplication by (symbol, exchange, securityType).
//
// Shard loading stays sequential: the backend round trip is cheap relative to
// filtering cost at realistic shard sizes, so only the CPU-bound step is
// parallelized. If ctx is cancelled while awaiting, unconsumed task results
// are discarded; dispatched tasks run to completion.
func (s *SearchService) Search(ctx context.Context, filter model.SearchFilter) ([]model.SymbolRecord, error) {
	keys, err := s.symbolRepo.ShardKeys(ctx, filter.Exchange, filter.SecurityType)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []model.SymbolRecord{}, nil
	}

	shards := make([][]model.SymbolRecord, 0, len(keys))
	for _, key := range keys {
		records, err := s.symbolRepo.LoadShard(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			shards = append(shards, records)
		}
	}

	results := make([]<-chan interface{}, 0, len(shards))
	for _, shard := range shards {
		shard := shard
		results = append(results, s.workers.Submit(func() interface{} {
			return filterShard(shard, filter.SearchString)
		}))
	}

	seen := make(map[model.CorpusKey]struct{})
	merged := make([]model.SymbolRecord, 0)
	for _, result := range results {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-result:
			for _, record := range res.([]model.SymbolRecord) {
				key := record.Key()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				merged = append(merged, record)
			}
		}
	}

	s.logger.Info("symbol search completed",
		zap.String("search_string", filter.SearchString),
		zap.Int("shards", len(shards)),
		zap.Int("matches", len(merged)))
	return merged, nil
}

// filterShard keeps the records whose symbol or description contains the
// search string, case-insensitively. An empty search string passes every
// record through unchanged.
func filterShard(records []model.SymbolRecord, searchString string) []model.SymbolRecord {
	if searchString == "" {
		return records
	}

	needle := strings.ToLower(searchString)
	matched := make([]model.SymbolRecord, 0, len(records))
	for _, record := range records {
		if strings.Contains(strings.ToLower(record.Symbol), needle) ||
			strings.Contains(strings.ToLower(record.Description), needle) {
			matched = append(matched, record)
		}
	}
	return matched
}
