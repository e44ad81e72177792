package mediaserver

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/reelcache/internal/config"
)

const detectTimeout = 10 * time.Second

// tautulliEnvelope is the shape of any /api/v2 response, including the
// error returned when no API key is supplied
type tautulliEnvelope struct {
	Response *struct {
		Result string `json:"result"`
	} `json:"response"`
}

// plexIdentity represents the Plex /identity response
type plexIdentity struct {
	XMLName           xml.Name `xml:"MediaContainer"`
	MachineIdentifier string   `xml:"machineIdentifier,attr"`
}

// DetectSourceType probes a server URL to determine if it's Tautulli or Plex.
func DetectSourceType(ctx context.Context, serverURL string) (config.SourceType, error) {
	serverURL = strings.TrimRight(serverURL, "/")
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}

	client := &http.Client{
		Timeout: detectTimeout,
	}

	// Try Tautulli first (/api/v2 answers with a JSON envelope even without a key)
	tautulliErr := tryTautulli(ctx, client, serverURL)
	if tautulliErr == nil {
		return config.SourceTypeTautulli, nil
	}

	// Try Plex (/identity is unauthenticated)
	plexErr := tryPlex(ctx, client, serverURL)
	if plexErr == nil {
		return config.SourceTypePlex, nil
	}

	return "", fmt.Errorf("could not detect source type: tried Tautulli (%v), Plex (%v)", tautulliErr, plexErr)
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Tautulli answers 401 with a JSON envelope when the key is missing
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// tryTautulli attempts to detect a Tautulli server
func tryTautulli(ctx context.Context, client *http.Client, serverURL string) error {
	body, err := fetch(ctx, client, serverURL+"/api/v2?cmd=arnold")
	if err != nil {
		return err
	}
	var env tautulliEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Response == nil || env.Response.Result == "" {
		return fmt.Errorf("not a Tautulli server")
	}
	return nil
}

// tryPlex attempts to detect a Plex server
func tryPlex(ctx context.Context, client *http.Client, serverURL string) error {
	body, err := fetch(ctx, client, serverURL+"/identity")
	if err != nil {
		return err
	}

	// Try XML parsing (Plex default)
	var identity plexIdentity
	if err := xml.Unmarshal(body, &identity); err == nil && identity.MachineIdentifier != "" {
		return nil
	}

	// Try JSON parsing (Plex with Accept: application/json)
	var jsonIdentity struct {
		MediaContainer struct {
			MachineIdentifier string `json:"machineIdentifier"`
		} `json:"MediaContainer"`
	}
	if err := json.Unmarshal(body, &jsonIdentity); err == nil && jsonIdentity.MediaContainer.MachineIdentifier != "" {
		return nil
	}

	return fmt.Errorf("not a Plex server")
}
