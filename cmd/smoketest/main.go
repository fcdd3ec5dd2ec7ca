package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/logging"
)

const sampleCase = `{
  "case_id": "smoketest",
  "crime": "Missing canary",
  "victim": "The canary",
  "location": "Coal mine",
  "npcs": [{"id": "npc_1", "name": "Miner", "role": "foreman", "personality": "gruff", "motive": "none",
            "alibi": "underground"}],
  "clues": [{"id": "clue_1", "description": "feathers", "relates_to": ["npc_1"], "location_hint": "shaft"}],
  "solution": "It flew away."
}`

var errUnexpectedStatus = errors.NewSentinel("unexpected status")

// request sends a request and returns the response body when the status matches wantStatus.
func request(ctx context.Context, method, url string, body []byte, wantStatus int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request", slog.String("url", url))
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	if resp.StatusCode != wantStatus {
		return nil, errors.Wrap(errUnexpectedStatus, fmt.Sprintf("%s %s", method, url),
			slog.Int("status", resp.StatusCode), slog.String("body", string(respBody)))
	}
	return respBody, nil
}

// TestAPI exercises the endpoints that work without calling language models.
func TestAPI(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()
	var err error

	if _, err = request(ctx, http.MethodGet, url+"/api/healthy", nil, http.StatusOK); err != nil {
		return errors.Wrap(err, "health check")
	}
	var validated struct {
		Valid bool `json:"valid"`
	}
	body, err := request(ctx, http.MethodPost, url+"/api/cases/validate", []byte(sampleCase), http.StatusOK)
	if err != nil {
		return errors.Wrap(err, "validate case")
	}
	if err = json.Unmarshal(body, &validated); err != nil || !validated.Valid {
		return errors.Wrap(errors.Join(errUnexpectedStatus, err), "validate case response",
			slog.String("body", string(body)))
	}
	invalid := strings.Replace(sampleCase, `"solution": "It flew away."`, `"solution": 1`, 1)
	if _, err = request(ctx, http.MethodPost, url+"/api/cases/validate", []byte(invalid),
		http.StatusBadRequest); err != nil {
		return errors.Wrap(err, "validate invalid case")
	}
	if _, err = request(ctx, http.MethodGet, url+"/api/cases", nil, http.StatusOK); err != nil {
		return errors.Wrap(err, "list cases")
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, false)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	url := "https://" + os.Args[1]
	if strings.HasPrefix(os.Args[1], "localhost") {
		url = "http://" + os.Args[1]
	}
	ctx = logging.WithAttrs(ctx, slog.String("url", url))

	if err := TestAPI(ctx, url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing API", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
