package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
)

const maxProbeBody = 64 << 10

var errInternalAddress = errors.New("refusing to connect to internal address")

// NewHTTPClient returns the client used by the gateway checker.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewPublicHTTPClient returns a client that refuses loopback, private,
// link-local and unspecified addresses. The check runs on the resolved
// address at dial time, so it also covers hostnames and redirects.
func NewPublicHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout, Control: refuseInternal}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: timeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func refuseInternal(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || isInternalIP(ip) {
		return fmt.Errorf("%w %s", errInternalAddress, host)
	}
	return nil
}

func isInternalIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast()
}

// GatewayChecker verifies a bearer token against a REST payment gateway by
// calling GET {base}/users/me, the MercadoPago identity endpoint. A binding may
// override the base URL with the api_base_url configuration key, but only
// towards the default host or one of the allowed hosts.
type GatewayChecker struct {
	client  *http.Client
	baseURL string
	allowed map[string]bool
}

func NewGatewayChecker(client *http.Client, baseURL string, allowedHosts ...string) *GatewayChecker {
	baseURL = strings.TrimRight(baseURL, "/")
	allowed := make(map[string]bool, len(allowedHosts)+1)
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		allowed[strings.ToLower(u.Host)] = true
	}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = true
		}
	}
	return &GatewayChecker{client: client, baseURL: baseURL, allowed: allowed}
}

func (c *GatewayChecker) Check(ctx context.Context, _ *domain.Provider, binding *domain.DecryptedBinding) ports.CheckResult {
	token := binding.Credentials.AccessToken
	if token == "" {
		return ports.CheckResult{Success: false, Message: "access token is not configured"}
	}

	base := c.baseURL
	if override, ok := binding.Configuration.GetString("api_base_url"); ok && override != "" {
		base = strings.TrimRight(override, "/")
	}
	u, err := checkURL(base)
	if err != nil {
		return ports.CheckResult{Success: false, Message: err.Error()}
	}
	if !c.allowed[strings.ToLower(u.Host)] {
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("api_base_url host %q is not allowed", u.Host)}
	}

	status, body, err := get(ctx, c.client, base+"/users/me", token)
	if err != nil {
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("gateway unreachable: %v", err)}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.CheckResult{Success: false, Message: "gateway rejected the access token"}
	case status < 200 || status > 299:
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("gateway returned status %d", status)}
	}

	details := map[string]interface{}{"status_code": status}
	for _, k := range []string{"id", "nickname", "site_id", "country_id"} {
		if v, ok := body[k]; ok {
			details[k] = v
		}
	}
	return ports.CheckResult{Success: true, Message: "connection successful", Details: details}
}

// HealthURLChecker calls the health_url configured on the binding. It is the
// default for providers without a dedicated checker. The URL is chosen by the
// cooperative, so the request carries no credentials; pair it with
// NewPublicHTTPClient.
type HealthURLChecker struct {
	client *http.Client
}

func NewHealthURLChecker(client *http.Client) *HealthURLChecker {
	return &HealthURLChecker{client: client}
}

func (c *HealthURLChecker) Check(ctx context.Context, provider *domain.Provider, binding *domain.DecryptedBinding) ports.CheckResult {
	target, ok := binding.Configuration.GetString("health_url")
	if !ok || target == "" {
		return ports.CheckResult{
			Success: false,
			Message: fmt.Sprintf("no connectivity check available for provider %s: set health_url in the configuration", provider.Code),
		}
	}
	if _, err := checkURL(target); err != nil {
		return ports.CheckResult{Success: false, Message: err.Error()}
	}

	status, _, err := get(ctx, c.client, target, "")
	if err != nil {
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("health check failed: %v", err)}
	}
	if status < 200 || status > 299 {
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("health check returned status %d", status)}
	}
	return ports.CheckResult{Success: true, Message: "connection successful", Details: map[string]interface{}{"status_code": status}}
}

func checkURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint URL %q", raw)
	}
	return u, nil
}

// get issues a GET, with a bearer token when one is given, and decodes a JSON
// object body when present.
func get(ctx context.Context, client *http.Client, target, token string) (int, map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return resp.StatusCode, nil, nil
	}
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body, nil
}
