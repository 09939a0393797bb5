package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"vrscout/config"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(config.LLMConfig{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "test-key",
		Model:      "test-model",
		Confidence: 0.35,
	}, srv.Client())
}

func TestExtractAddress(t *testing.T) {
	srv := chatServer(t, `{"street_address": "456 Beach Rd", "city": "Destin", "state": "FL", "postal_code": "32541"}`)
	defer srv.Close()

	got, err := testClient(srv).ExtractAddress(context.Background(), "page text", "Destin, FL")
	if err != nil {
		t.Fatalf("ExtractAddress: %v", err)
	}
	if got == nil {
		t.Fatal("got nil address")
	}
	if got.Street != "456 Beach Rd" || got.City != "Destin" || got.State != "FL" {
		t.Errorf("address = %+v", got)
	}
	if got.Confidence != 0.35 {
		t.Errorf("confidence = %v, want configured 0.35", got.Confidence)
	}
}

func TestExtractAddressNoneFound(t *testing.T) {
	srv := chatServer(t, `{"street_address": "", "city": "", "state": "", "postal_code": ""}`)
	defer srv.Close()

	got, err := testClient(srv).ExtractAddress(context.Background(), "page text", "")
	if err != nil {
		t.Fatalf("ExtractAddress: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil when model finds nothing", got)
	}
}

func TestExtractAddressServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited"}}`)
	}))
	defer srv.Close()

	if _, err := testClient(srv).ExtractAddress(context.Background(), "text", ""); err == nil {
		t.Error("expected error on 429")
	}
}

func TestExtractAddressBadContent(t *testing.T) {
	srv := chatServer(t, `sorry, I cannot help with that`)
	defer srv.Close()

	if _, err := testClient(srv).ExtractAddress(context.Background(), "text", ""); err == nil {
		t.Error("expected error on non-JSON content")
	}
}
