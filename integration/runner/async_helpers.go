package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/pkg/state"
)

// PollInterval is how often to re-read the saved world while waiting.
var PollInterval = 500 * time.Millisecond

// CommandError is returned when the API answers a command with an
// unexpected status.
type CommandError struct {
	Status int
	Body   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("commands endpoint returned %d: %s", e.Status, e.Body)
}

// PostCommand posts a command and returns the queued command id.
func PostCommand(ctx context.Context, client *http.Client, baseURL string, worldID uuid.UUID, cmd handlers.CommandRequest) (string, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to marshal command: %w", err)
	}

	url := fmt.Sprintf("%s/v1/worlds/%s/commands", baseURL, worldID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return "", &CommandError{Status: resp.StatusCode, Body: string(data)}
	}

	var out handlers.CommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse command response: %w", err)
	}
	return out.CommandID, nil
}

// GetWorld retrieves the last saved state of a world.
func GetWorld(ctx context.Context, client *http.Client, baseURL string, worldID uuid.UUID) (*state.WorldState, error) {
	url := fmt.Sprintf("%s/v1/worlds/%s", baseURL, worldID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create world request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send world request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("world endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var ws state.WorldState
	if err := json.NewDecoder(resp.Body).Decode(&ws); err != nil {
		return nil, fmt.Errorf("failed to decode world: %w", err)
	}
	return &ws, nil
}

// PollForExpectations re-reads the world until it satisfies exp or timeout
// passes. On timeout the last mismatch is returned.
func PollForExpectations(ctx context.Context, client *http.Client, baseURL string, worldID uuid.UUID, exp Expectations, timeout time.Duration) (*state.WorldState, error) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			if lastErr == nil {
				lastErr = fmt.Errorf("no world state received")
			}
			return nil, fmt.Errorf("timeout waiting for world (waited %v): %w", timeout, lastErr)
		case <-ticker.C:
			ws, err := GetWorld(ctx, client, baseURL, worldID)
			if err != nil {
				lastErr = err
				continue
			}
			if err := CheckExpectations(exp, ws); err != nil {
				lastErr = err
				continue
			}
			return ws, nil
		}
	}
}
