package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coop-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const providerColumns = `id, code, name, type, description, website_url, documentation_url, logo_url,
		supports_webhooks, supports_cards, supports_transfers, supports_cash, supports_recurring,
		min_amount, max_amount, fee_percentage, fixed_fee, expiration_minutes, confirmation_hours,
		countries, currencies, status, active, created_at, updated_at`

// ProviderRepo implements ports.ProviderRepository.
type ProviderRepo struct {
	pool Pool
}

// NewProviderRepo creates a new ProviderRepo.
func NewProviderRepo(pool Pool) *ProviderRepo {
	return &ProviderRepo{pool: pool}
}

// Create inserts a new provider. A duplicate code surfaces as ports.ErrDuplicateKey.
func (r *ProviderRepo) Create(ctx context.Context, p *domain.Provider) error {
	query := `INSERT INTO payment_providers (` + providerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Code, p.Name, p.Type, p.Description, p.WebsiteURL, p.DocumentationURL, p.LogoURL,
		p.SupportsWebhooks, p.SupportsCards, p.SupportsTransfers, p.SupportsCash, p.SupportsRecurring,
		p.MinAmount, p.MaxAmount, p.FeePercentage, p.FixedFee, p.ExpirationMinutes, p.ConfirmationHours,
		p.Countries, p.Currencies, p.Status, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert provider: %w", translate(err))
	}
	return nil
}

// GetByID fetches a provider by its UUID.
func (r *ProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM payment_providers WHERE id = $1`
	p, err := scanProvider(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get provider by id: %w", err)
	}
	return p, nil
}

// GetByCode fetches a provider by its unique code.
func (r *ProviderRepo) GetByCode(ctx context.Context, code string) (*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM payment_providers WHERE code = $1`
	p, err := scanProvider(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("get provider by code: %w", err)
	}
	return p, nil
}

// List fetches providers with filtering, sorting and pagination. The sort
// field must already be validated against domain.ProviderSortFields.
func (r *ProviderRepo) List(ctx context.Context, params domain.ProviderListParams) ([]domain.Provider, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	add := func(cond string, arg any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, arg)
		argIdx++
	}

	f := params.Filter
	if f.Type != nil {
		add("type = $%d", *f.Type)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Active != nil {
		add("active = $%d", *f.Active)
	}
	if f.SupportsWebhooks != nil {
		add("supports_webhooks = $%d", *f.SupportsWebhooks)
	}
	if f.SupportsCards != nil {
		add("supports_cards = $%d", *f.SupportsCards)
	}
	if f.SupportsTransfers != nil {
		add("supports_transfers = $%d", *f.SupportsTransfers)
	}
	if f.SupportsCash != nil {
		add("supports_cash = $%d", *f.SupportsCash)
	}
	if f.SupportsRecurring != nil {
		add("supports_recurring = $%d", *f.SupportsRecurring)
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%[1]d OR code ILIKE $%[1]d OR COALESCE(description, '') ILIKE $%[1]d)", argIdx))
		args = append(args, "%"+escapeLike(f.Search)+"%")
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payment_providers %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count providers: %w", err)
	}

	sortField := params.SortField
	if !domain.ProviderSortFields[sortField] {
		sortField = "created_at"
	}
	sortDir := "DESC"
	if params.SortDir == domain.SortAsc {
		sortDir = "ASC"
	}

	// Fetch page
	dataQuery := fmt.Sprintf(`SELECT %s FROM payment_providers %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		providerColumns, where, sortField, sortDir, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan provider row: %w", err)
		}
		providers = append(providers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate provider rows: %w", err)
	}
	return providers, total, nil
}

// Update writes every mutable column of the provider.
func (r *ProviderRepo) Update(ctx context.Context, p *domain.Provider) error {
	query := `UPDATE payment_providers
		SET code=$1, name=$2, type=$3, description=$4, website_url=$5, documentation_url=$6, logo_url=$7,
			supports_webhooks=$8, supports_cards=$9, supports_transfers=$10, supports_cash=$11, supports_recurring=$12,
			min_amount=$13, max_amount=$14, fee_percentage=$15, fixed_fee=$16,
			expiration_minutes=$17, confirmation_hours=$18, countries=$19, currencies=$20,
			status=$21, active=$22, updated_at=$23
		WHERE id=$24`

	_, err := r.pool.Exec(ctx, query,
		p.Code, p.Name, p.Type, p.Description, p.WebsiteURL, p.DocumentationURL, p.LogoURL,
		p.SupportsWebhooks, p.SupportsCards, p.SupportsTransfers, p.SupportsCash, p.SupportsRecurring,
		p.MinAmount, p.MaxAmount, p.FeePercentage, p.FixedFee,
		p.ExpirationMinutes, p.ConfirmationHours, p.Countries, p.Currencies,
		p.Status, p.Active, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update provider: %w", translate(err))
	}
	return nil
}

// Delete removes a provider inside tx. A binding still referencing it
// surfaces as ports.ErrForeignKeyViolation.
func (r *ProviderRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM payment_providers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete provider: %w", translate(err))
	}
	return tag.RowsAffected() > 0, nil
}

func scanProvider(row pgx.Row) (*domain.Provider, error) {
	p := &domain.Provider{}
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Type, &p.Description, &p.WebsiteURL, &p.DocumentationURL, &p.LogoURL,
		&p.SupportsWebhooks, &p.SupportsCards, &p.SupportsTransfers, &p.SupportsCash, &p.SupportsRecurring,
		&p.MinAmount, &p.MaxAmount, &p.FeePercentage, &p.FixedFee, &p.ExpirationMinutes, &p.ConfirmationHours,
		&p.Countries, &p.Currencies, &p.Status, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
