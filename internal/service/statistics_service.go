package service

import (
	"context"
	"fmt"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
	"coop-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

type statisticsService struct {
	bindings  ports.BindingRepository
	providers ports.ProviderRepository
	log       zerolog.Logger
}

// NewStatisticsService creates a read-only usage aggregator.
func NewStatisticsService(bindings ports.BindingRepository, providers ports.ProviderRepository, log zerolog.Logger) ports.StatisticsService {
	return &statisticsService{bindings: bindings, providers: providers, log: log}
}

func (s *statisticsService) Summarize(ctx context.Context, cooperativeID string, filter domain.StatisticsFilter) (*domain.Statistics, error) {
	period, err := domain.ParsePeriod(string(filter.Period))
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	binding, err := s.bindings.GetByCooperativeID(ctx, cooperativeID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get binding: %w", err))
	}
	if binding == nil {
		return domain.EmptyStatistics(period), nil
	}

	stats := &domain.Statistics{
		TotalTransactions:    binding.TransactionCount,
		TotalAmountProcessed: binding.TotalAmountProcessed,
		LastTransaction:      binding.LastTransactionAt,
		ConnectivityStatus:   binding.ConnectivityStatus,
		Period:               period,
	}
	integratedAt := binding.IntegratedAt
	stats.IntegratedAt = &integratedAt
	if binding.TransactionCount > 0 {
		stats.AverageAmount = float64(binding.TotalAmountProcessed) / float64(binding.TransactionCount)
	}

	provider, err := s.providers.GetByID(ctx, binding.ProviderID)
	if err != nil {
		s.log.Warn().Err(err).Str("cooperative_id", cooperativeID).Msg("provider lookup failed for statistics")
	} else if provider != nil {
		stats.ProviderCode = provider.Code
	}

	return stats, nil
}
