package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Resolver maps a viewer IP to an ISO country code. Resolution is best
// effort: any failure yields the empty country, which the policy layer
// treats fail-closed when a block list is active.
type Resolver interface {
	Country(ctx context.Context, ip string) string
}

// HTTPResolver calls an ip-api.com style JSON endpoint with a hard timeout.
// The geo service is an external collaborator; a slow or broken lookup must
// never hold up or grant an access decision.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

func NewHTTPResolver(endpoint string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPResolver) Country(ctx context.Context, ip string) string {
	if ip == "" || isPrivate(ip) {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?fields=status,countryCode", r.endpoint, url.PathEscape(ip)), nil)
	if err != nil {
		return ""
	}

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Warn("geo lookup failed", "ip", ip, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("geo lookup non-200", "ip", ip, "status", resp.StatusCode)
		return ""
	}

	var body struct {
		Status      string `json:"status"`
		CountryCode string `json:"countryCode"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	if err != nil || body.Status != "success" {
		return ""
	}

	return strings.ToUpper(body.CountryCode)
}

func isPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified()
}
