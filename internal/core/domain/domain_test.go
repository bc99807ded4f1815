package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_IsAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status ProviderStatus
		active bool
		want   bool
	}{
		{"active", ProviderStatusActive, true, true},
		{"inactive flag", ProviderStatusActive, false, false},
		{"maintenance", ProviderStatusMaintenance, true, false},
		{"deprecated", ProviderStatusDeprecated, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Provider{Status: tt.status, Active: tt.active}
			assert.Equal(t, tt.want, p.IsAvailable())
		})
	}
}

func TestProvider_ApplyDefaults(t *testing.T) {
	p := &Provider{}
	p.ApplyDefaults("ARS")

	assert.Equal(t, 60, p.ExpirationMinutes)
	assert.Equal(t, 24, p.ConfirmationHours)
	assert.Equal(t, []string{"ARS"}, p.Currencies)
	assert.Equal(t, []string{}, p.Countries)
	assert.Equal(t, ProviderStatusActive, p.Status)

	p = &Provider{ExpirationMinutes: 15, Currencies: []string{"USD"}, Status: ProviderStatusInactive}
	p.ApplyDefaults("ARS")
	assert.Equal(t, 15, p.ExpirationMinutes)
	assert.Equal(t, []string{"USD"}, p.Currencies)
	assert.Equal(t, ProviderStatusInactive, p.Status)
}

func TestProviderPatch_Apply(t *testing.T) {
	desc := "old"
	p := &Provider{Code: "MP", Name: "MercadoPago", Description: &desc, SupportsCards: false}

	name := "Mercado Pago"
	cards := true
	ProviderPatch{Name: &name, SupportsCards: &cards, Currencies: []string{"ARS", "USD"}}.Apply(p)

	assert.Equal(t, "MP", p.Code)
	assert.Equal(t, "Mercado Pago", p.Name)
	assert.True(t, p.SupportsCards)
	assert.Equal(t, "old", *p.Description)
	assert.Equal(t, []string{"ARS", "USD"}, p.Currencies)
}

func TestValidAmountRange(t *testing.T) {
	lo, hi := int64(100), int64(50)
	assert.True(t, ValidAmountRange(nil, nil))
	assert.True(t, ValidAmountRange(&hi, nil))
	assert.True(t, ValidAmountRange(&hi, &lo))
	assert.False(t, ValidAmountRange(&lo, &hi))
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 5, 5},
		{5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.size), func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.total, tt.size))
		})
	}
}

func TestProviderListParams_Offset(t *testing.T) {
	assert.Equal(t, 0, ProviderListParams{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, ProviderListParams{Page: 3, PageSize: 20}.Offset())
	assert.Equal(t, 0, ProviderListParams{Page: 0, PageSize: 20}.Offset())
}

func TestConfiguration_PreservesOrderAndValues(t *testing.T) {
	input := `{"zeta":1,"alpha":"x","nested":{"b":2,"a":[1,2]},"flag":true,"none":null}`

	var cfg Configuration
	require.NoError(t, json.Unmarshal([]byte(input), &cfg))

	assert.Equal(t, []string{"zeta", "alpha", "nested", "flag", "none"}, cfg.Keys())
	assert.Equal(t, 5, cfg.Len())

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))

	s, ok := cfg.GetString("alpha")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = cfg.GetString("zeta")
	assert.False(t, ok, "non-string values are not returned as strings")
}

func TestConfiguration_SetKeepsPosition(t *testing.T) {
	cfg := NewConfiguration()
	cfg.Set("a", json.RawMessage(`1`))
	cfg.Set("b", json.RawMessage(`2`))
	cfg.Set("a", json.RawMessage(`3`))

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"b":2}`, string(out))
}

func TestConfiguration_Clone(t *testing.T) {
	cfg := NewConfiguration()
	cfg.Set("a", json.RawMessage(`1`))

	clone := cfg.Clone()
	clone.Set("b", json.RawMessage(`2`))

	assert.Equal(t, 1, cfg.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestConfiguration_Rejects(t *testing.T) {
	for _, input := range []string{`[1,2]`, `"str"`, `{"a":}`} {
		var cfg Configuration
		assert.Error(t, json.Unmarshal([]byte(input), &cfg), input)
	}
}

func TestConfiguration_NullAndEmpty(t *testing.T) {
	var cfg Configuration
	require.NoError(t, json.Unmarshal([]byte(`null`), &cfg))
	assert.Equal(t, 0, cfg.Len())

	out, err := json.Marshal(Configuration{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestCredentials_Redaction(t *testing.T) {
	creds := Credentials{AccessToken: "secret123", PrivateKey: "pk-very-secret"}

	assert.NotContains(t, creds.String(), "secret123")
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v", creds, creds, creds), "secret123")
	assert.Equal(t, "Credentials{access_token:[REDACTED], private_key:[REDACTED]}", creds.String())

	out, err := json.Marshal(creds)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret123")
	assert.NotContains(t, string(out), "pk-very-secret")
	assert.JSONEq(t, `{"access_token":"[REDACTED]","private_key":"[REDACTED]"}`, string(out))
}

func TestBinding_RecordProbe(t *testing.T) {
	now := time.Now()
	b := &Binding{ConnectivityStatus: ConnectivityUnverified}

	b.RecordProbe(false, "401 unauthorized", now)
	assert.Equal(t, ConnectivityError, b.ConnectivityStatus)
	require.NotNil(t, b.LastConnectionError)
	assert.Equal(t, "401 unauthorized", *b.LastConnectionError)

	b.RecordProbe(true, "ok", now.Add(time.Minute))
	assert.Equal(t, ConnectivityConnected, b.ConnectivityStatus)
	assert.Nil(t, b.LastConnectionError)
	assert.Equal(t, now.Add(time.Minute), *b.LastConnectionAt)
}

func TestNewBindingView_HidesSecrets(t *testing.T) {
	refresh := "envelope-refresh"
	b := &Binding{
		ID:            uuid.New(),
		CooperativeID: "coop-1",
		Secrets:       SecretEnvelopes{AccessToken: "aa:bb", RefreshToken: &refresh},
	}
	p := &Provider{ID: uuid.New(), Code: "MP", Name: "MercadoPago", Type: ProviderTypeGateway}

	view := NewBindingView(b, p)
	assert.True(t, view.HasAccessToken)
	assert.True(t, view.HasRefreshToken)
	assert.False(t, view.HasPrivateKey)
	assert.Equal(t, "MP", view.Provider.Code)
	assert.Empty(t, view.Binding.Secrets.AccessToken)
	assert.Equal(t, "aa:bb", b.Secrets.AccessToken, "source binding is not modified")

	out, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "aa:bb")
	assert.NotContains(t, string(out), "envelope-refresh")
	assert.Contains(t, string(out), `"cooperative_id":"coop-1"`)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodAll, p)

	p, err = ParsePeriod("week")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("year")
	assert.Error(t, err)
}

func TestEmptyStatistics(t *testing.T) {
	s := EmptyStatistics(PeriodMonth)
	assert.Zero(t, s.TotalTransactions)
	assert.Zero(t, s.TotalAmountProcessed)
	assert.Nil(t, s.LastTransaction)
	assert.Equal(t, ConnectivityUnverified, s.ConnectivityStatus)
	assert.Equal(t, PeriodMonth, s.Period)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, ProviderTypeGateway.Valid())
	assert.False(t, ProviderType("CRYPTO").Valid())
	assert.True(t, ProviderStatusMaintenance.Valid())
	assert.False(t, ProviderStatus("GONE").Valid())
}
