package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsAndEscapes(t *testing.T) {
	desc := "  Pagos <b>rápidos</b>  "
	req := CreateProviderRequest{
		Code:        "  MP  ",
		Name:        " MercadoPago ",
		Description: &desc,
		Countries:   []string{" AR "},
	}
	SanitizeStruct(&req)

	assert.Equal(t, "MP", req.Code)
	assert.Equal(t, "MercadoPago", req.Name)
	assert.Equal(t, "Pagos &lt;b&gt;rápidos&lt;/b&gt;", *req.Description)
	assert.Equal(t, []string{"AR"}, req.Countries)
}

func TestSanitizeStruct_SkipsSecretsAndURLs(t *testing.T) {
	hook := "https://coop.example/hook?a=1&b=2"
	req := ConfigureBindingRequest{
		ProviderID:  "  id  ",
		AccessToken: "  APP_USR-<tok>&  ",
		WebhookURL:  &hook,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "id", req.ProviderID)
	assert.Equal(t, "  APP_USR-<tok>&  ", req.AccessToken, "secrets reach the vault verbatim")
	assert.Equal(t, "https://coop.example/hook?a=1&b=2", *req.WebhookURL)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := UpdateBindingRequest{}
	SanitizeStruct(&req)
	assert.Nil(t, req.WebhookURL)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestProviderCode(t *testing.T) {
	for _, tc := range []string{"MP", "stripe", "BANK_TRANSFER-01", "a"} {
		assert.True(t, providerCodeRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"", "-MP", "mp pay", "mp;DROP", "x<y>", "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJKLMNOPQRSTUVWXYZ"} {
		assert.False(t, providerCodeRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestCreateProviderRequest_Validation(t *testing.T) {
	valid := func() CreateProviderRequest {
		return CreateProviderRequest{Code: "MP", Name: "MercadoPago", Type: "GATEWAY"}
	}
	require.NoError(t, binding.Validator.ValidateStruct(ptrTo(valid())))

	tests := []struct {
		name   string
		mutate func(r *CreateProviderRequest)
	}{
		{"bad code", func(r *CreateProviderRequest) { r.Code = "M P" }},
		{"bad type", func(r *CreateProviderRequest) { r.Type = "CRYPTO" }},
		{"javascript url", func(r *CreateProviderRequest) { u := "javascript:alert(1)"; r.LogoURL = &u }},
		{"lowercase country", func(r *CreateProviderRequest) { r.Countries = []string{"ar"} }},
		{"bad currency", func(r *CreateProviderRequest) { r.Currencies = []string{"PESO"} }},
		{"fee above 100", func(r *CreateProviderRequest) { f := 101.0; r.FeePercentage = &f }},
		{"negative min", func(r *CreateProviderRequest) { m := int64(-1); r.MinAmount = &m }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			assert.Error(t, binding.Validator.ValidateStruct(&req))
		})
	}
}

func TestUpdateProviderRequest_ToPatch(t *testing.T) {
	typ := "CASH"
	status := "MAINTENANCE"
	name := "Efectivo"
	patch := (&UpdateProviderRequest{Type: &typ, Status: &status, Name: &name}).ToPatch()

	require.NotNil(t, patch.Type)
	assert.Equal(t, "CASH", string(*patch.Type))
	assert.Equal(t, "MAINTENANCE", string(*patch.Status))
	assert.Equal(t, "Efectivo", *patch.Name)
	assert.Nil(t, patch.Code)
}

func TestListProvidersQuery_ToParams(t *testing.T) {
	active := true
	params := (&ListProvidersQuery{Type: "GATEWAY", Active: &active, Page: 2, PageSize: 5, Sort: "name", Order: "asc"}).ToParams()

	require.NotNil(t, params.Filter.Type)
	assert.Equal(t, "GATEWAY", string(*params.Filter.Type))
	assert.Nil(t, params.Filter.Status)
	assert.Equal(t, 5, params.Offset())
	assert.Equal(t, "asc", string(params.SortDir))
}

func TestCreateProviderRequest_ToDomainDefaultsActive(t *testing.T) {
	p := (&CreateProviderRequest{Code: "MP", Name: "MercadoPago", Type: "GATEWAY"}).ToDomain()
	assert.True(t, p.Active)

	inactive := false
	p = (&CreateProviderRequest{Code: "MP", Active: &inactive}).ToDomain()
	assert.False(t, p.Active)
}

func ptrTo[T any](v T) *T { return &v }
