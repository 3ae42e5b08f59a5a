package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fixturelab/plumbline/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestImportUploadsDataset(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /dataset": `{"status":"imported","rows":2}`,
	})

	client := ts.client()
	rows := []map[string]any{
		{"Unit": "101", "Notes": "ok"},
		{"Unit": "102", "Notes": "leaky"},
	}

	resp, err := client.post(ctx, "/dataset", rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := drainOK(resp); err != nil {
		t.Fatalf("unexpected response error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/dataset" {
		t.Errorf("request = %s %s, want POST /dataset", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var sent []map[string]any
	if err := json.Unmarshal([]byte(r.Body), &sent); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if len(sent) != 2 || sent[0]["Unit"] != "101" {
		t.Errorf("sent rows = %v", sent)
	}
}

func TestReportFetch(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /report/notes": `[{"unit":"2","note":"Heavy leak from tub spout."},{"unit":"101","note":"Light leak from kitchen faucet."}]`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/report/notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var notes []struct {
		Unit string `json:"unit"`
		Note string `json:"note"`
	}
	if err := decodeJSON(resp, &notes); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].Unit != "2" || notes[0].Note != "Heavy leak from tub spout." {
		t.Errorf("notes[0] = %+v", notes[0])
	}
}

func TestReportUnitColumnQuery(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /report/notes": `[]`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/report/notes?unit_column=Bldg%2FUnit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if got := ts.requests[0].Path; !strings.Contains(got, "unit_column=Bldg%2FUnit") {
		t.Errorf("path = %q, want encoded unit_column query", got)
	}
}

func TestNotesSet(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PUT /notes/101": `{"status":"updated","unit":"101"}`,
	})

	client := ts.client()
	resp, err := client.put(ctx, "/notes/101", map[string]string{"content": "Replaced aerator"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := drainOK(resp); err != nil {
		t.Fatalf("unexpected response error: %v", err)
	}

	var sent map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &sent); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if sent["content"] != "Replaced aerator" {
		t.Errorf("content = %q", sent["content"])
	}
}

func TestAnnotateCommand_MissingFlags(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"annotate", "101"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing flags")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"auth_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/notes")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4800

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4800" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4800 in ShowAll output")
	}
}

func TestLogLevelFrom(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"WARN", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		if got := logLevelFrom(tt.name).String(); got != tt.want {
			t.Errorf("logLevelFrom(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}
