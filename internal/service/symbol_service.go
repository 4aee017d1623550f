package service

import (
	"context"

	"github.com/yourorg/symbol-directory/internal/model"
	"github.com/yourorg/symbol-directory/internal/pubsub"
	"github.com/yourorg/symbol-directory/internal/repository"

	"go.uber.org/zap"
)

// Mutation outcomes that are results, not errors
const (
	StatusAdded    = "added"
	StatusSkipped  = "skipped"
	StatusRemoved  = "removed"
	StatusNotFound = "not_found"
)

// SymbolService curates the ingestion worklist and the system-config
// aggregate. Every mutation that changes stored state publishes a change
// notification for the downstream ingestion workers.
type SymbolService struct {
	symbolRepo *repository.SymbolRepository
	publisher  *pubsub.Publisher
	logger     *zap.Logger
}

// NewSymbolService creates a new symbol service
func NewSymbolService(symbolRepo *repository.SymbolRepository, publisher *pubsub.Publisher, logger *zap.Logger) *SymbolService {
	return &SymbolService{
		symbolRepo: symbolRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// GetWorklist returns the current ingestion worklist
func (s *SymbolService) GetWorklist(ctx context.Context) ([]model.SymbolRecord, error) {
	return s.symbolRepo.GetWorklist(ctx)
}

// SetWorklist overwrites the ingestion worklist and notifies subscribers
func (s *SymbolService) SetWorklist(ctx context.Context, records []model.SymbolRecord) error {
	if err := s.writeWorklist(ctx, records); err != nil {
		return err
	}
	s.logger.Info("ingestion worklist replaced", zap.Int("count", len(records)))
	return nil
}

// AddToWorklist appends a record unless an entry with the same
// (symbol, exchange) already exists. Matching is a case-sensitive linear scan.
func (s *SymbolService) AddToWorklist(ctx context.Context, record model.SymbolRecord) (string, error) {
	current, err := s.symbolRepo.GetWorklist(ctx)
	if err != nil {
		return "", err
	}

	for _, existing := range current {
		if existing.SameInstrument(record) {
			s.logger.Info("symbol already on worklist",
				zap.String("symbol", record.Symbol),
				zap.String("exchange", record.Exchange))
			return StatusSkipped, nil
		}
	}

	current = append(current, record)
	if err := s.writeWorklist(ctx, current); err != nil {
		return "", err
	}

	s.logger.Info("symbol added to worklist",
		zap.String("symbol", record.Symbol),
		zap.String("exchange", record.Exchange),
		zap.Int("total", len(current)))
	return StatusAdded, nil
}

// RemoveFromWorklist filters out every entry matching the record's
// (symbol, exchange). The list is only written back, and subscribers only
// notified, when it actually shrank.
func (s *SymbolService) RemoveFromWorklist(ctx context.Context, record model.SymbolRecord) (string, error) {
	current, err := s.symbolRepo.GetWorklist(ctx)
	if err != nil {
		return "", err
	}

	remaining := make([]model.SymbolRecord, 0, len(current))
	for _, existing := range current {
		if !existing.SameInstrument(record) {
			remaining = append(remaining, existing)
		}
	}

	if len(remaining) == len(current) {
		s.logger.Info("symbol not on worklist, nothing to remove",
			zap.String("symbol", record.Symbol),
			zap.String("exchange", record.Exchange))
		return StatusNotFound, nil
	}

	if err := s.writeWorklist(ctx, remaining); err != nil {
		return "", err
	}

	s.logger.Info("symbol removed from worklist",
		zap.String("symbol", record.Symbol),
		zap.String("exchange", record.Exchange),
		zap.Int("total", len(remaining)))
	return StatusRemoved, nil
}

// GetConfig returns the system configuration, falling back to defaults when
// nothing has been stored
func (s *SymbolService) GetConfig(ctx context.Context) (model.SystemConfig, error) {
	return s.symbolRepo.GetConfig(ctx)
}

// SetConfig replaces the system configuration and notifies subscribers
func (s *SymbolService) SetConfig(ctx context.Context, cfg model.SystemConfig) error {
	if err := s.symbolRepo.SetConfig(ctx, cfg); err != nil {
		return err
	}
	s.publisher.Publish(ctx, pubsub.ChannelConfigUpdates, pubsub.MessageConfigUpdated)
	s.logger.Info("system config replaced")
	return nil
}

// writeWorklist is the single store-and-notify seam for every worklist
// mutation. The surrounding load/mutate/store sequence carries no
// compare-and-swap guard, so concurrent mutations can lose one side's update;
// an optimistic-lock upgrade would land here.
func (s *SymbolService) writeWorklist(ctx context.Context, records []model.SymbolRecord) error {
	if err := s.symbolRepo.SetWorklist(ctx, records); err != nil {
		return err
	}
	s.publisher.Publish(ctx, pubsub.ChannelSymbolUpdates, pubsub.MessageSymbolsUpdated)
	return nil
}
