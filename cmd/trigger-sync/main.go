package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type syncResponse struct {
	Success bool `json:"success"`
	Data    struct {
		RunID        string   `json:"runId"`
		SyncedCount  int      `json:"syncedCount"`
		FailedCount  int      `json:"failedCount"`
		SkippedCount int      `json:"skippedCount"`
		Errors       []string `json:"errors"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Asks a running server to sync, the way an external cron service would.
func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", envOrDefault("BASE_URL", "http://localhost:8080"), "server base URL")
	timeout := flag.Duration("timeout", 15*time.Minute, "request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	endpoint := strings.TrimRight(*baseURL, "/") + "/api/sync"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	log.Printf("triggering sync at %s", endpoint)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}

	var out syncResponse
	if err := json.Unmarshal(body, &out); err != nil {
		log.Fatalf("unexpected response (%d): %s", resp.StatusCode, body)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if out.Error != nil {
			msg = out.Error.Message
		}
		log.Fatalf("sync rejected (%d): %s", resp.StatusCode, msg)
	}

	fmt.Printf("run %s: success=%t synced=%d failed=%d skipped=%d\n",
		out.Data.RunID, out.Success, out.Data.SyncedCount, out.Data.FailedCount, out.Data.SkippedCount)
	for _, e := range out.Data.Errors {
		fmt.Printf("  %s\n", e)
	}
	if !out.Success {
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
