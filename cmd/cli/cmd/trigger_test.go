package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("CRONPLANE")
	viper.AutomaticEnv()
}

func TestTriggerCommand_Success(t *testing.T) {
	resetViper()

	jobID := "11111111-2222-3333-4444-555555555555"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/trigger") {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if !strings.Contains(r.URL.Path, jobID) {
			t.Errorf("expected job id in path, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth header: %s", auth)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id":      jobID,
			"type":        "report",
			"status":      "SUCCEEDED",
			"retry_count": 0,
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"trigger", jobID})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Job ran successfully") {
		t.Errorf("expected success message, got: %s", output)
	}
	if !strings.Contains(output, "SUCCEEDED") {
		t.Errorf("expected status in output, got: %s", output)
	}
}

func TestTriggerCommand_HandlerFailure(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id":      "abc",
			"type":        "report",
			"status":      "PENDING",
			"retry_count": 1,
			"error":       "handler exploded",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"trigger", "abc"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Job ran and failed") {
		t.Errorf("expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "handler exploded") {
		t.Errorf("expected handler error in output, got: %s", output)
	}
}

func TestTriggerCommand_Conflict(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "Job is not pending (already claimed or finished)"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"trigger", "abc"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Failed to trigger job") {
		t.Errorf("expected failure message, got: %s", output)
	}
}

func TestTriggerCommand_MissingToken(t *testing.T) {
	resetViper()

	viper.Set("url", "http://localhost:7070")
	viper.Set("token", "")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"trigger", "abc"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "API token not found") {
		t.Errorf("expected token error message, got: %s", stdout.String())
	}
}
