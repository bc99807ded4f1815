package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coop-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bindingColumns = `id, cooperative_id, provider_id, active, principal, test_environment,
		access_token_enc, refresh_token_enc, public_key_enc, private_key_enc, webhook_secret_enc,
		webhook_url, configuration, min_amount, max_amount, fee_percentage, fixed_fee,
		connectivity_status, last_connection_at, last_connection_error,
		transaction_count, total_amount_processed, last_transaction_at,
		integrated_at, created_at, updated_at`

// BindingRepo implements ports.BindingRepository.
type BindingRepo struct {
	pool Pool
}

// NewBindingRepo creates a new BindingRepo.
func NewBindingRepo(pool Pool) *BindingRepo {
	return &BindingRepo{pool: pool}
}

// Create inserts a binding within tx. A second binding for the same
// cooperative surfaces as ports.ErrDuplicateKey.
func (r *BindingRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Binding) error {
	cfg, err := b.Configuration.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	query := `INSERT INTO cooperative_payment_providers (` + bindingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	_, err = tx.Exec(ctx, query,
		b.ID, b.CooperativeID, b.ProviderID, b.Active, b.Principal, b.TestEnvironment,
		b.Secrets.AccessToken, b.Secrets.RefreshToken, b.Secrets.PublicKey, b.Secrets.PrivateKey, b.Secrets.WebhookSecret,
		b.WebhookURL, string(cfg), b.MinAmount, b.MaxAmount, b.FeePercentage, b.FixedFee,
		b.ConnectivityStatus, b.LastConnectionAt, b.LastConnectionError,
		b.TransactionCount, b.TotalAmountProcessed, b.LastTransactionAt,
		b.IntegratedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert binding: %w", translate(err))
	}
	return nil
}

// GetByCooperativeID fetches the cooperative's binding.
func (r *BindingRepo) GetByCooperativeID(ctx context.Context, cooperativeID string) (*domain.Binding, error) {
	query := `SELECT ` + bindingColumns + ` FROM cooperative_payment_providers WHERE cooperative_id = $1`
	b, err := scanBinding(r.pool.QueryRow(ctx, query, cooperativeID))
	if err != nil {
		return nil, fmt.Errorf("get binding by cooperative: %w", err)
	}
	return b, nil
}

// GetByCooperativeIDForUpdate fetches the binding with a row lock (SELECT ... FOR UPDATE).
func (r *BindingRepo) GetByCooperativeIDForUpdate(ctx context.Context, tx pgx.Tx, cooperativeID string) (*domain.Binding, error) {
	query := `SELECT ` + bindingColumns + ` FROM cooperative_payment_providers WHERE cooperative_id = $1 FOR UPDATE`
	b, err := scanBinding(tx.QueryRow(ctx, query, cooperativeID))
	if err != nil {
		return nil, fmt.Errorf("lock binding: %w", err)
	}
	return b, nil
}

// Update writes the mutable configuration of a binding. Connectivity state and
// usage counters have dedicated statements and are not touched here.
func (r *BindingRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Binding) error {
	cfg, err := b.Configuration.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	query := `UPDATE cooperative_payment_providers
		SET provider_id=$1, active=$2, principal=$3, test_environment=$4,
			access_token_enc=$5, refresh_token_enc=$6, public_key_enc=$7, private_key_enc=$8, webhook_secret_enc=$9,
			webhook_url=$10, configuration=$11, min_amount=$12, max_amount=$13, fee_percentage=$14, fixed_fee=$15,
			updated_at=$16
		WHERE id=$17`

	_, err = tx.Exec(ctx, query,
		b.ProviderID, b.Active, b.Principal, b.TestEnvironment,
		b.Secrets.AccessToken, b.Secrets.RefreshToken, b.Secrets.PublicKey, b.Secrets.PrivateKey, b.Secrets.WebhookSecret,
		b.WebhookURL, string(cfg), b.MinAmount, b.MaxAmount, b.FeePercentage, b.FixedFee,
		b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update binding: %w", translate(err))
	}
	return nil
}

// ClearPrincipal unsets principal on the cooperative's other bindings.
func (r *BindingRepo) ClearPrincipal(ctx context.Context, tx pgx.Tx, cooperativeID string, exceptID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE cooperative_payment_providers SET principal = FALSE, updated_at = NOW()
		 WHERE cooperative_id = $1 AND id <> $2 AND principal`,
		cooperativeID, exceptID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear principal: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Deactivate soft-disables the cooperative's binding.
func (r *BindingRepo) Deactivate(ctx context.Context, cooperativeID string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cooperative_payment_providers SET active = FALSE, updated_at = $1 WHERE cooperative_id = $2`,
		at, cooperativeID,
	)
	if err != nil {
		return false, fmt.Errorf("deactivate binding: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateConnectivity records a probe outcome.
func (r *BindingRepo) UpdateConnectivity(ctx context.Context, id uuid.UUID, status domain.ConnectivityStatus, checkedAt time.Time, lastError *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE cooperative_payment_providers
		 SET connectivity_status = $1, last_connection_at = $2, last_connection_error = $3, updated_at = $2
		 WHERE id = $4`,
		status, checkedAt, lastError, id,
	)
	if err != nil {
		return fmt.Errorf("update connectivity: %w", err)
	}
	return nil
}

// IncrementUsage bumps the usage counters in a single statement so
// concurrent increments never lose updates.
func (r *BindingRepo) IncrementUsage(ctx context.Context, cooperativeID string, amount int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cooperative_payment_providers
		 SET transaction_count = transaction_count + 1,
		     total_amount_processed = total_amount_processed + $1,
		     last_transaction_at = $2,
		     updated_at = NOW()
		 WHERE cooperative_id = $3`,
		amount, at, cooperativeID,
	)
	if err != nil {
		return false, fmt.Errorf("increment usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountByProvider counts bindings referencing a provider.
func (r *BindingRepo) CountByProvider(ctx context.Context, tx pgx.Tx, providerID uuid.UUID) (int64, error) {
	var count int64
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM cooperative_payment_providers WHERE provider_id = $1`,
		providerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bindings by provider: %w", err)
	}
	return count, nil
}

// ListActive returns every active binding, oldest first.
func (r *BindingRepo) ListActive(ctx context.Context) ([]domain.Binding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bindingColumns+` FROM cooperative_payment_providers WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active bindings: %w", err)
	}
	defer rows.Close()

	var bindings []domain.Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan binding row: %w", err)
		}
		bindings = append(bindings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate binding rows: %w", err)
	}
	return bindings, nil
}

func scanBinding(row pgx.Row) (*domain.Binding, error) {
	b := &domain.Binding{}
	var cfg []byte
	err := row.Scan(
		&b.ID, &b.CooperativeID, &b.ProviderID, &b.Active, &b.Principal, &b.TestEnvironment,
		&b.Secrets.AccessToken, &b.Secrets.RefreshToken, &b.Secrets.PublicKey, &b.Secrets.PrivateKey, &b.Secrets.WebhookSecret,
		&b.WebhookURL, &cfg, &b.MinAmount, &b.MaxAmount, &b.FeePercentage, &b.FixedFee,
		&b.ConnectivityStatus, &b.LastConnectionAt, &b.LastConnectionError,
		&b.TransactionCount, &b.TotalAmountProcessed, &b.LastTransactionAt,
		&b.IntegratedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(cfg) == 0 {
		b.Configuration = domain.NewConfiguration()
	} else if err := json.Unmarshal(cfg, &b.Configuration); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return b, nil
}
