package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
	"coop-payments/internal/core/ports/mocks"
	"coop-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type bindingDeps struct {
	bindings   *mocks.MockBindingRepository
	providers  *mocks.MockProviderRepository
	transactor *mocks.MockDBTransactor
}

func newBindingDeps(ctrl *gomock.Controller) *bindingDeps {
	return &bindingDeps{
		bindings:   mocks.NewMockBindingRepository(ctrl),
		providers:  mocks.NewMockProviderRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
	}
}

func (d *bindingDeps) service() ports.BindingService {
	return NewBindingService(d.bindings, d.providers, d.transactor, testVault, newTestLogger())
}

func mercadoPagoProvider() *domain.Provider {
	p := &domain.Provider{ID: uuid.New(), Code: "MP", Name: "MercadoPago", Type: domain.ProviderTypeGateway, Active: true}
	p.ApplyDefaults("ARS")
	return p
}

func sealedBinding(t *testing.T, coopID string, providerID uuid.UUID) *domain.Binding {
	t.Helper()
	access, err := testVault.Encrypt("APP_USR-123")
	require.NoError(t, err)
	secret, err := testVault.Encrypt("whsec")
	require.NoError(t, err)
	return &domain.Binding{
		ID:                 uuid.New(),
		CooperativeID:      coopID,
		ProviderID:         providerID,
		Active:             true,
		Secrets:            domain.SecretEnvelopes{AccessToken: access, WebhookSecret: &secret},
		Configuration:      domain.NewConfiguration(),
		ConnectivityStatus: domain.ConnectivityUnverified,
	}
}

// Configure a binding, then read it back decrypted and as a public view.
func TestBindingService_ConfigureAndReadBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	provider := mercadoPagoProvider()
	tx := &mockTx{}
	var stored *domain.Binding

	cfg := domain.NewConfiguration()
	cfg.Set("sandbox", json.RawMessage(`true`))

	d.providers.EXPECT().GetByID(gomock.Any(), provider.ID).Return(provider, nil).AnyTimes()
	gomock.InOrder(
		d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C1").Return(nil, nil),
		d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C1").DoAndReturn(
			func(ctx context.Context, coopID string) (*domain.Binding, error) { return stored, nil },
		).Times(2),
	)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.bindings.EXPECT().ClearPrincipal(gomock.Any(), tx, "C1", gomock.Any()).Return(int64(0), nil)
	d.bindings.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ pgx.Tx, b *domain.Binding) error {
			stored = b
			return nil
		},
	)

	view, err := svc.Configure(context.Background(), "C1", domain.BindingSpec{
		ProviderID:    provider.ID,
		Principal:     true,
		Credentials:   domain.Credentials{AccessToken: "APP_USR-123", WebhookSecret: "whsec"},
		Configuration: cfg,
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, domain.ConnectivityUnverified, view.ConnectivityStatus)
	assert.True(t, view.HasAccessToken)
	assert.True(t, view.HasWebhookSecret)
	assert.False(t, view.HasRefreshToken)
	require.NotNil(t, view.Provider)
	assert.Equal(t, "MP", view.Provider.Code)
	assert.False(t, view.IntegratedAt.IsZero())

	require.NotNil(t, stored)
	assert.NotEqual(t, "APP_USR-123", stored.Secrets.AccessToken, "secret stored as ciphertext")
	assert.Contains(t, stored.Secrets.AccessToken, ":")

	decrypted, err := svc.GetForCooperative(context.Background(), "C1")
	require.NoError(t, err)
	require.NotNil(t, decrypted)
	assert.Equal(t, "APP_USR-123", decrypted.Credentials.AccessToken)
	assert.Equal(t, "whsec", decrypted.Credentials.WebhookSecret)
	assert.Empty(t, decrypted.Credentials.RefreshToken)

	public, err := svc.Describe(context.Background(), "C1")
	require.NoError(t, err)
	body, err := json.Marshal(public)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "APP_USR-123")
	assert.NotContains(t, string(body), stored.Secrets.AccessToken)
	assert.Contains(t, string(body), `"configuration":{"sandbox":true}`)
}

func TestBindingService_Configure_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	provider := mercadoPagoProvider()
	d.providers.EXPECT().GetByID(gomock.Any(), provider.ID).Return(provider, nil)
	d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C1").Return(sealedBinding(t, "C1", provider.ID), nil)

	_, err := svc.Configure(context.Background(), "C1", domain.BindingSpec{
		ProviderID:  provider.ID,
		Credentials: domain.Credentials{AccessToken: "tok"},
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "BND_001", appErr.Code)
}

func TestBindingService_Configure_ConcurrentLoser(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	provider := mercadoPagoProvider()
	tx := &mockTx{}
	d.providers.EXPECT().GetByID(gomock.Any(), provider.ID).Return(provider, nil)
	d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C1").Return(nil, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.bindings.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(ports.ErrDuplicateKey)

	_, err := svc.Configure(context.Background(), "C1", domain.BindingSpec{
		ProviderID:  provider.ID,
		Credentials: domain.Credentials{AccessToken: "tok"},
	})
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	assert.True(t, tx.rolledBack)
}

func TestBindingService_Configure_UnknownProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	d.providers.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := svc.Configure(context.Background(), "C1", domain.BindingSpec{
		ProviderID:  uuid.New(),
		Credentials: domain.Credentials{AccessToken: "tok"},
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestBindingService_Configure_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	_, err := svc.Configure(context.Background(), "C1", domain.BindingSpec{ProviderID: uuid.New()})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "access token required")

	_, err = svc.Configure(context.Background(), "  ", domain.BindingSpec{
		Credentials: domain.Credentials{AccessToken: "tok"},
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "cooperative id required")

	_, err = svc.Configure(context.Background(), "C1", domain.BindingSpec{
		Credentials: domain.Credentials{AccessToken: "tok"},
		MinAmount:   ptr(int64(1000)),
		MaxAmount:   ptr(int64(10)),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "amount range")
}

func TestBindingService_Configure_VaultFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := NewBindingService(d.bindings, d.providers, d.transactor, NewScryptVault(""), newTestLogger())

	provider := mercadoPagoProvider()
	d.providers.EXPECT().GetByID(gomock.Any(), provider.ID).Return(provider, nil)
	d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C1").Return(nil, nil)

	_, err := svc.Configure(context.Background(), "C1", domain.BindingSpec{
		ProviderID:  provider.ID,
		Credentials: domain.Credentials{AccessToken: "tok"},
	})
	assert.True(t, apperror.IsKind(err, apperror.KindEncryption))
}

func TestBindingService_GetForCooperative_None(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C9").Return(nil, nil)

	got, err := svc.GetForCooperative(context.Background(), "C9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBindingService_GetForCooperative_TamperedEnvelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	b := sealedBinding(t, "C1", uuid.New())
	b.Secrets.AccessToken = strings.Repeat("0", 24) + ":" + "deadbeef"
	d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C1").Return(b, nil)

	_, err := svc.GetForCooperative(context.Background(), "C1")
	assert.True(t, apperror.IsKind(err, apperror.KindDecryption))
}

func TestBindingService_Describe_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	d.bindings.EXPECT().GetByCooperativeID(gomock.Any(), "C1").Return(nil, nil)

	_, err := svc.Describe(context.Background(), "C1")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestBindingService_Update_SecretsAndPrincipal(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	provider := mercadoPagoProvider()
	b := sealedBinding(t, "C1", provider.ID)
	oldAccess := b.Secrets.AccessToken
	tx := &mockTx{}
	var updated *domain.Binding

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.bindings.EXPECT().GetByCooperativeIDForUpdate(gomock.Any(), tx, "C1").Return(b, nil)
	d.providers.EXPECT().GetByID(gomock.Any(), provider.ID).Return(provider, nil)
	d.bindings.EXPECT().ClearPrincipal(gomock.Any(), tx, "C1", b.ID).Return(int64(1), nil)
	d.bindings.EXPECT().Update(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ pgx.Tx, got *domain.Binding) error {
			updated = got
			return nil
		},
	)

	view, err := svc.Update(context.Background(), "C1", domain.BindingPatch{
		Principal:     ptr(true),
		AccessToken:   ptr("APP_USR-456"),
		RefreshToken:  ptr("refresh"),
		WebhookSecret: ptr(""),
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
	require.NotNil(t, updated)
	assert.NotEqual(t, oldAccess, updated.Secrets.AccessToken)
	assert.Nil(t, updated.Secrets.WebhookSecret, "empty secret clears it")
	require.NotNil(t, updated.Secrets.RefreshToken)

	refresh, err := testVault.Decrypt(*updated.Secrets.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refresh)

	assert.True(t, view.Principal)
	assert.True(t, view.HasRefreshToken)
	assert.False(t, view.HasWebhookSecret)
}

func TestBindingService_Update_AbsentSecretsUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	provider := mercadoPagoProvider()
	b := sealedBinding(t, "C1", provider.ID)
	before := b.Secrets
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.bindings.EXPECT().GetByCooperativeIDForUpdate(gomock.Any(), tx, "C1").Return(b, nil)
	d.providers.EXPECT().GetByID(gomock.Any(), provider.ID).Return(provider, nil)
	d.bindings.EXPECT().Update(gomock.Any(), tx, gomock.Any()).Return(nil)

	_, err := svc.Update(context.Background(), "C1", domain.BindingPatch{TestEnvironment: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, before, b.Secrets)
	assert.True(t, b.TestEnvironment)
}

func TestBindingService_Update_ChangeToUnknownProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	b := sealedBinding(t, "C1", uuid.New())
	tx := &mockTx{}
	other := uuid.New()

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.bindings.EXPECT().GetByCooperativeIDForUpdate(gomock.Any(), tx, "C1").Return(b, nil)
	d.providers.EXPECT().GetByID(gomock.Any(), other).Return(nil, nil)

	_, err := svc.Update(context.Background(), "C1", domain.BindingPatch{ProviderID: &other})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	assert.True(t, tx.rolledBack)
}

func TestBindingService_Update_EmptyAccessToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	_, err := svc.Update(context.Background(), "C1", domain.BindingPatch{AccessToken: ptr("")})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestBindingService_Update_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.bindings.EXPECT().GetByCooperativeIDForUpdate(gomock.Any(), tx, "C1").Return(nil, nil)

	_, err := svc.Update(context.Background(), "C1", domain.BindingPatch{Active: ptr(false)})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestBindingService_Disable(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	d.bindings.EXPECT().Deactivate(gomock.Any(), "C1", gomock.Any()).Return(true, nil).Times(2)
	d.bindings.EXPECT().Deactivate(gomock.Any(), "C2", gomock.Any()).Return(false, nil)

	require.NoError(t, svc.Disable(context.Background(), "C1"))
	require.NoError(t, svc.Disable(context.Background(), "C1"), "disable is idempotent")

	err := svc.Disable(context.Background(), "C2")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestBindingService_IncrementUsage(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := newBindingDeps(ctrl)
	svc := d.service()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.bindings.EXPECT().IncrementUsage(gomock.Any(), "C1", int64(1500), at).Return(true, nil)
	d.bindings.EXPECT().IncrementUsage(gomock.Any(), "C2", int64(10), gomock.Any()).Return(false, nil)

	require.NoError(t, svc.IncrementUsage(context.Background(), "C1", 1500, at))

	err := svc.IncrementUsage(context.Background(), "C2", 10, at)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	err = svc.IncrementUsage(context.Background(), "C1", -1, at)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
