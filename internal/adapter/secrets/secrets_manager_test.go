package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	value  *string
	errs   []error
	calls  int
	lastID string
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	f.lastID = aws.ToString(in.SecretId)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func newTestClient(f *fakeSecrets) *Client {
	c := newClient(f, zerolog.Nop())
	c.maxRetries = 2
	return c
}

func TestResolve_NoARN(t *testing.T) {
	c := newTestClient(&fakeSecrets{})

	v, err := c.Resolve(context.Background(), "", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", v)

	_, err = c.Resolve(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestResolve_PlainText(t *testing.T) {
	f := &fakeSecrets{value: aws.String("s3cr3t")}
	v, err := newTestClient(f).Resolve(context.Background(), "arn:aws:secretsmanager:us-east-1:1:secret:vault", "")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)
	assert.Equal(t, "arn:aws:secretsmanager:us-east-1:1:secret:vault", f.lastID)
}

func TestResolve_SingleKeyJSON(t *testing.T) {
	f := &fakeSecrets{value: aws.String(`{"master_secret":"inner"}`)}
	v, err := newTestClient(f).Resolve(context.Background(), "arn", "")
	require.NoError(t, err)
	assert.Equal(t, "inner", v)
}

func TestResolve_MultiKeyJSONReturnedRaw(t *testing.T) {
	raw := `{"a":"1","b":"2"}`
	v, err := newTestClient(&fakeSecrets{value: aws.String(raw)}).Resolve(context.Background(), "arn", "")
	require.NoError(t, err)
	assert.Equal(t, raw, v)
}

func TestResolve_RetriesTransientFailure(t *testing.T) {
	f := &fakeSecrets{value: aws.String("ok"), errs: []error{errors.New("throttled")}}
	v, err := newTestClient(f).Resolve(context.Background(), "arn", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, f.calls)
}

func TestResolve_FailureUsesFallback(t *testing.T) {
	boom := errors.New("access denied")
	f := &fakeSecrets{errs: []error{boom, boom, boom}}
	v, err := newTestClient(f).Resolve(context.Background(), "arn", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
	assert.Equal(t, 3, f.calls)
}

func TestResolve_FailureWithoutFallback(t *testing.T) {
	f := &fakeSecrets{value: aws.String("")}
	_, err := newTestClient(f).Resolve(context.Background(), "arn", "")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
