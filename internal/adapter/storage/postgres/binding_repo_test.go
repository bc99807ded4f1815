package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBinding() *domain.Binding {
	now := time.Now().UTC().Truncate(time.Microsecond)
	cfg := domain.NewConfiguration()
	cfg.Set("zeta", json.RawMessage(`1`))
	cfg.Set("alpha", json.RawMessage(`"x"`))
	return &domain.Binding{
		ID:                 uuid.New(),
		CooperativeID:      "coop-1",
		ProviderID:         uuid.New(),
		Active:             true,
		Principal:          true,
		Secrets:            domain.SecretEnvelopes{AccessToken: "aabb:ccdd", WebhookSecret: strPtr("eeff:0011")},
		Configuration:      cfg,
		ConnectivityStatus: domain.ConnectivityUnverified,
		IntegratedAt:       now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func bindingColumnNames() []string {
	return []string{"id", "cooperative_id", "provider_id", "active", "principal", "test_environment",
		"access_token_enc", "refresh_token_enc", "public_key_enc", "private_key_enc", "webhook_secret_enc",
		"webhook_url", "configuration", "min_amount", "max_amount", "fee_percentage", "fixed_fee",
		"connectivity_status", "last_connection_at", "last_connection_error",
		"transaction_count", "total_amount_processed", "last_transaction_at",
		"integrated_at", "created_at", "updated_at"}
}

func bindingRow(b *domain.Binding, cfg []byte) *pgxmock.Rows {
	return pgxmock.NewRows(bindingColumnNames()).AddRow(
		b.ID, b.CooperativeID, b.ProviderID, b.Active, b.Principal, b.TestEnvironment,
		b.Secrets.AccessToken, b.Secrets.RefreshToken, b.Secrets.PublicKey, b.Secrets.PrivateKey, b.Secrets.WebhookSecret,
		b.WebhookURL, cfg, b.MinAmount, b.MaxAmount, b.FeePercentage, b.FixedFee,
		b.ConnectivityStatus, b.LastConnectionAt, b.LastConnectionError,
		b.TransactionCount, b.TotalAmountProcessed, b.LastTransactionAt,
		b.IntegratedAt, b.CreatedAt, b.UpdatedAt,
	)
}

func TestBindingRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	b := newTestBinding()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cooperative_payment_providers").
		WithArgs(
			b.ID, b.CooperativeID, b.ProviderID, b.Active, b.Principal, b.TestEnvironment,
			b.Secrets.AccessToken, b.Secrets.RefreshToken, b.Secrets.PublicKey, b.Secrets.PrivateKey, b.Secrets.WebhookSecret,
			b.WebhookURL, `{"zeta":1,"alpha":"x"}`, b.MinAmount, b.MaxAmount, b.FeePercentage, b.FixedFee,
			b.ConnectivityStatus, b.LastConnectionAt, b.LastConnectionError,
			b.TransactionCount, b.TotalAmountProcessed, b.LastTransactionAt,
			b.IntegratedAt, b.CreatedAt, b.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), dbTx, b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_Create_DuplicateCooperative(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cooperative_payment_providers").
		WithArgs(anyArgs(26)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_cooperative_payment_providers_cooperative"})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, newTestBinding())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrDuplicateKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_GetByCooperativeID_PreservesConfigurationOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	b := newTestBinding()

	mock.ExpectQuery("SELECT .+ FROM cooperative_payment_providers WHERE cooperative_id").
		WithArgs("coop-1").
		WillReturnRows(bindingRow(b, []byte(`{"zeta":1,"alpha":"x"}`)))

	result, err := repo.GetByCooperativeID(context.Background(), "coop-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, b.ID, result.ID)
	assert.Equal(t, "aabb:ccdd", result.Secrets.AccessToken)
	assert.Equal(t, []string{"zeta", "alpha"}, result.Configuration.Keys())
	assert.Nil(t, result.Secrets.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_GetByCooperativeID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM cooperative_payment_providers WHERE cooperative_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(bindingColumnNames()))

	result, err := repo.GetByCooperativeID(context.Background(), "coop-9")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestBindingRepo_GetForUpdate_LocksRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	b := newTestBinding()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM cooperative_payment_providers WHERE cooperative_id = \\$1 FOR UPDATE").
		WithArgs("coop-1").
		WillReturnRows(bindingRow(b, []byte(`{}`)))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByCooperativeIDForUpdate(context.Background(), dbTx, "coop-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Zero(t, result.Configuration.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_ClearPrincipal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cooperative_payment_providers SET principal = FALSE").
		WithArgs("coop-1", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	n, err := repo.ClearPrincipal(context.Background(), dbTx, "coop-1", id)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_Deactivate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE cooperative_payment_providers SET active = FALSE").
		WithArgs(at, "coop-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE cooperative_payment_providers SET active = FALSE").
		WithArgs(at, "coop-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	found, err := repo.Deactivate(context.Background(), "coop-1", at)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.Deactivate(context.Background(), "coop-2", at)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_UpdateConnectivity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()
	msg := "401 unauthorized"

	mock.ExpectExec("UPDATE cooperative_payment_providers SET connectivity_status").
		WithArgs(domain.ConnectivityError, at, &msg, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateConnectivity(context.Background(), id, domain.ConnectivityError, at, &msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_IncrementUsage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	at := time.Now().UTC()

	mock.ExpectExec(`SET transaction_count = transaction_count \+ 1`).
		WithArgs(int64(1500), at, "coop-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	found, err := repo.IncrementUsage(context.Background(), "coop-1", 1500, at)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_CountByProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	providerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM cooperative_payment_providers WHERE provider_id`).
		WithArgs(providerID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	n, err := repo.CountByProvider(context.Background(), dbTx, providerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingRepo_ListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBindingRepo(mock)
	b := newTestBinding()

	mock.ExpectQuery("SELECT .+ FROM cooperative_payment_providers WHERE active").
		WillReturnRows(bindingRow(b, []byte(`{"a":true}`)))

	bindings, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "coop-1", bindings[0].CooperativeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
