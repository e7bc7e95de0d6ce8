// Package directory looks up member attributes from the community's user
// directory service.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veredas/trailhead/internal/access"
	"golang.org/x/oauth2"
)

// Directory is the source of the member attributes the access evaluator
// reads. The directory service is an external collaborator; the engine
// never writes to it.
type Directory interface {
	Attributes(ctx context.Context, userID string) (access.Profile, error)
}

// HTTPDirectory fetches member attributes over HTTP, authenticating with a
// static bearer token.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates an HTTPDirectory for the given service base URL.
func NewHTTP(baseURL, token string) (*HTTPDirectory, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("directory: base URL is required")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), src)
		client.Timeout = 10 * time.Second
	}

	return &HTTPDirectory{baseURL: baseURL, client: client}, nil
}

// attributesResponse is the wire shape of the directory's member endpoint.
type attributesResponse struct {
	Level int      `json:"level"`
	Tags  []string `json:"tags"`
	Roles []string `json:"roles"`
}

// Attributes fetches the member's level, tags, and roles.
func (d *HTTPDirectory) Attributes(ctx context.Context, userID string) (access.Profile, error) {
	if userID == "" {
		return access.Profile{}, fmt.Errorf("directory: userID is required")
	}

	url := fmt.Sprintf("%s/members/%s/attributes", d.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return access.Profile{}, fmt.Errorf("directory: build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return access.Profile{}, fmt.Errorf("directory: get attributes for %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return access.Profile{}, fmt.Errorf("directory: get attributes for %s: status %d", userID, resp.StatusCode)
	}

	var body attributesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return access.Profile{}, fmt.Errorf("directory: decode attributes for %s: %w", userID, err)
	}

	return access.Profile{Level: body.Level, Tags: body.Tags, Roles: body.Roles}, nil
}

// Static is an in-memory Directory for tests and local development.
// Unknown users resolve to an empty profile, matching the evaluator's
// treatment of absent attributes.
type Static map[string]access.Profile

// Attributes returns the stored profile for userID, or a zero profile.
func (s Static) Attributes(_ context.Context, userID string) (access.Profile, error) {
	return s[userID], nil
}
