package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "settlement-shared-secret"
	payload := `POST|/internal/v1/cooperatives/coop-1/usage|1708092000|n-1|{"amount":50000}`

	signature := svc.Sign(secret, payload)

	assert.Regexp(t, `^[0-9a-f]{64}$`, signature)
	assert.True(t, svc.Verify(secret, payload, signature))
	assert.True(t, svc.Verify(secret, payload, strings.ToUpper(signature)), "hex case is not significant")
}

func TestHMACSignatureService_VerifyFailures(t *testing.T) {
	svc := NewHMACSignatureService()
	signature := svc.Sign("correct-key", "payload")

	assert.False(t, svc.Verify("wrong-key", "payload", signature))
	assert.False(t, svc.Verify("correct-key", "tampered", signature))
	assert.False(t, svc.Verify("correct-key", "payload", "not-hex"))
	assert.False(t, svc.Verify("correct-key", "payload", ""))
	assert.False(t, svc.Verify("", "payload", svc.Sign("", "payload")), "an unset secret never verifies")
}

func TestHMACSignatureService_BuildCanonicalString(t *testing.T) {
	svc := NewHMACSignatureService()

	assert.Equal(t,
		`POST|/internal/v1/cooperatives/coop-1/usage|1708092000|abc123|{"amount":50000}`,
		svc.BuildCanonicalString("post", "/internal/v1/cooperatives/coop-1/usage", 1708092000, "abc123", `{"amount":50000}`),
	)
	assert.Equal(t, "GET|/x|1|n|", svc.BuildCanonicalString("GET", "/x", 1, "n", ""))
}
