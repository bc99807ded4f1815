// Package secrets resolves the vault master secret from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrSecretNotFound is returned when neither Secrets Manager nor the fallback
// value yields a secret.
var ErrSecretNotFound = errors.New("secret not found")

type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Client wraps the AWS Secrets Manager client.
type Client struct {
	svc        secretValueGetter
	maxRetries uint64
	log        zerolog.Logger
}

// NewClient builds a client from the default AWS configuration chain
// (environment, shared config, IAM role).
func NewClient(ctx context.Context, region string, log zerolog.Logger) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newClient(secretsmanager.NewFromConfig(cfg), log), nil
}

func newClient(svc secretValueGetter, log zerolog.Logger) *Client {
	return &Client{svc: svc, maxRetries: 3, log: log}
}

// Resolve returns the secret stored under arn. Secrets stored as a JSON
// object with a single key resolve to that key's value. When arn is empty
// or the fetch fails, fallback is used if non-empty.
func (c *Client) Resolve(ctx context.Context, arn, fallback string) (string, error) {
	if arn == "" {
		if fallback == "" {
			return "", ErrSecretNotFound
		}
		return fallback, nil
	}

	secret, err := c.fetch(ctx, arn)
	if err == nil {
		c.log.Info().Str("secret_arn", arn).Msg("Secret loaded from Secrets Manager")
		return secret, nil
	}

	if fallback != "" {
		c.log.Warn().Err(err).Str("secret_arn", arn).Msg("Secrets Manager fetch failed, using configured fallback")
		return fallback, nil
	}
	return "", fmt.Errorf("%w: %s: %w", ErrSecretNotFound, arn, err)
}

func (c *Client) fetch(ctx context.Context, arn string) (string, error) {
	var out *secretsmanager.GetSecretValueOutput
	op := func() error {
		var err error
		out, err = c.svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", wait).Msg("Secrets Manager fetch failed, retrying")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", err
	}

	if out.SecretString == nil || *out.SecretString == "" {
		return "", errors.New("secret has no string value")
	}
	raw := *out.SecretString

	var single map[string]string
	if json.Unmarshal([]byte(raw), &single) == nil && len(single) == 1 {
		for _, v := range single {
			return v, nil
		}
	}
	return raw, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
