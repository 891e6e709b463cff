package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/campuspulse-backend/internal/platform/llm"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

var reportSchema = llm.Schema{
	Name: "campus_report",
	Fields: []llm.Field{
		{Name: "trend", Kind: llm.FieldString},
		{Name: "stressor", Kind: llm.FieldString},
		{Name: "intervention", Kind: llm.FieldString},
	},
}

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	c, err := NewClient(logger.NewNop(), Config{APIKey: "sk-test", BaseURL: baseURL, Model: "test-model"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerateJSONSendsStrictSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		format, _ := req["text"].(map[string]any)["format"].(map[string]any)
		if format["type"] != "json_schema" || format["name"] != "campus_report" {
			t.Errorf("unexpected format: %v", format)
		}
		_, _ = io.WriteString(w, `{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"trend\":\"t\",\"stressor\":\"s\",\"intervention\":\"i\"}"}]}]}`)
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL).GenerateJSON(context.Background(), "logs", reportSchema)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if text != `{"trend":"t","stressor":"s","intervention":"i"}` {
		t.Fatalf("GenerateJSON: unexpected text %q", text)
	}
}

func TestGenerateJSONErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   llm.Kind
	}{
		{name: "http_error", status: http.StatusTooManyRequests, body: `{"error":{"message":"rate limited"}}`, want: llm.KindUpstream},
		{name: "no_output", status: http.StatusOK, body: `{"output":[]}`, want: llm.KindMalformed},
		{name: "not_json", status: http.StatusOK, body: `<html>`, want: llm.KindMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).GenerateJSON(context.Background(), "logs", reportSchema)
			if got := llm.KindOf(err); got != tc.want {
				t.Fatalf("KindOf=%s, want %s (err=%v)", got, tc.want, err)
			}
		})
	}

	t.Run("upstream_message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
		}))
		defer srv.Close()
		_, err := newTestClient(t, srv.URL).GenerateJSON(context.Background(), "logs", reportSchema)
		if got := llm.UpstreamMessage(err); got != "Incorrect API key provided" {
			t.Fatalf("UpstreamMessage=%q", got)
		}
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()
		_, err := newTestClient(t, url).GenerateJSON(context.Background(), "logs", reportSchema)
		if got := llm.KindOf(err); got != llm.KindTransport {
			t.Fatalf("KindOf=%s, want transport (err=%v)", got, err)
		}
	})
}
