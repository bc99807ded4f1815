package service

import (
	"context"
	"fmt"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
	"coop-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

type probeService struct {
	bindings  ports.BindingService
	repo      ports.BindingRepository
	providers ports.ProviderRepository
	checkers  ports.CheckerResolver
	log       zerolog.Logger
	now       func() time.Time
}

// NewConnectivityProbe creates the probe. Provider failures never surface as
// errors; only failing to record the outcome does.
func NewConnectivityProbe(
	bindings ports.BindingService,
	repo ports.BindingRepository,
	providers ports.ProviderRepository,
	checkers ports.CheckerResolver,
	log zerolog.Logger,
) ports.ConnectivityProbe {
	return &probeService{
		bindings:  bindings,
		repo:      repo,
		providers: providers,
		checkers:  checkers,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *probeService) Verify(ctx context.Context, cooperativeID string) (*domain.ProbeResult, error) {
	logger := s.log.With().Str("cooperative_id", cooperativeID).Logger()

	binding, err := s.bindings.GetForCooperative(ctx, cooperativeID)
	if err != nil && !apperror.IsKind(err, apperror.KindDecryption) {
		return nil, err
	}
	if err == nil && binding == nil {
		return &domain.ProbeResult{Connected: false, Message: domain.NoProviderConfiguredMessage}, nil
	}

	var check ports.CheckResult
	if err != nil {
		// Envelopes that no longer open are recorded against the binding
		// rather than failing the call.
		logger.Warn().Err(err).Msg("binding secrets could not be decrypted")
		raw, getErr := s.repo.GetByCooperativeID(ctx, cooperativeID)
		if getErr != nil {
			return nil, apperror.InternalError(fmt.Errorf("get binding: %w", getErr))
		}
		if raw == nil {
			return &domain.ProbeResult{Connected: false, Message: domain.NoProviderConfiguredMessage}, nil
		}
		binding = &domain.DecryptedBinding{Binding: *raw}
		check = ports.CheckResult{Success: false, Message: "stored credentials could not be decrypted"}
	} else {
		check = s.runCheck(ctx, binding)
	}

	checkedAt := s.now()
	var lastError *string
	status := domain.ConnectivityConnected
	if !check.Success {
		status = domain.ConnectivityError
		msg := check.Message
		lastError = &msg
	}

	if err := s.repo.UpdateConnectivity(ctx, binding.ID, status, checkedAt, lastError); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record connectivity: %w", err))
	}

	logger.Info().
		Str("binding_id", binding.ID.String()).
		Str("status", string(status)).
		Msg("connectivity verified")

	return &domain.ProbeResult{
		Connected: check.Success,
		Message:   check.Message,
		Details:   check.Details,
		Status:    status,
		CheckedAt: &checkedAt,
	}, nil
}

func (s *probeService) runCheck(ctx context.Context, binding *domain.DecryptedBinding) ports.CheckResult {
	provider, err := s.providers.GetByID(ctx, binding.ProviderID)
	if err != nil {
		s.log.Warn().Err(err).Str("provider_id", binding.ProviderID.String()).Msg("provider lookup failed during probe")
		return ports.CheckResult{Success: false, Message: "provider lookup failed"}
	}
	if provider == nil {
		return ports.CheckResult{Success: false, Message: "provider not found"}
	}

	checker := s.checkers.Resolve(provider)
	if checker == nil {
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("no connectivity check for provider %s", provider.Code)}
	}

	result := checker.Check(ctx, provider, binding)
	if result.Message == "" {
		if result.Success {
			result.Message = "connection successful"
		} else {
			result.Message = "connection failed"
		}
	}
	return result
}
