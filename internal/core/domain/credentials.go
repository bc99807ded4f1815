package domain

import (
	"encoding/json"
	"strings"
)

const redacted = "[REDACTED]"

// Credentials holds decrypted binding secrets. An empty field means the
// secret is not configured. Values never leave the process: String,
// GoString and MarshalJSON all redact them.
type Credentials struct {
	AccessToken   string
	RefreshToken  string
	PublicKey     string
	PrivateKey    string
	WebhookSecret string
}

func (c Credentials) fields() [][2]string {
	return [][2]string{
		{"access_token", c.AccessToken},
		{"refresh_token", c.RefreshToken},
		{"public_key", c.PublicKey},
		{"private_key", c.PrivateKey},
		{"webhook_secret", c.WebhookSecret},
	}
}

func (c Credentials) String() string {
	var b strings.Builder
	b.WriteString("Credentials{")
	first := true
	for _, f := range c.fields() {
		if f[1] == "" {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(f[0])
		b.WriteString(":")
		b.WriteString(redacted)
	}
	b.WriteString("}")
	return b.String()
}

func (c Credentials) GoString() string {
	return c.String()
}

func (c Credentials) MarshalJSON() ([]byte, error) {
	out := map[string]string{}
	for _, f := range c.fields() {
		if f[1] != "" {
			out[f[0]] = redacted
		}
	}
	return json.Marshal(out)
}
