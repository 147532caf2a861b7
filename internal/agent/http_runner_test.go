package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPRunnerRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Message != "hello" || req.Channel != "heychat" {
			t.Errorf("request = %+v", req)
		}

		json.NewEncoder(w).Encode(Response{Content: "hi there"})
	}))
	defer srv.Close()

	r := NewHTTPRunner(srv.URL, "sk-test", 5*time.Second)
	resp, err := r.Run(context.Background(), Request{
		SessionKey: "agent:default:heychat:direct:u1",
		Message:    "hello",
		Channel:    "heychat",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Content != "hi there" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestHTTPRunnerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPRunner(srv.URL, "", time.Second)
	if _, err := r.Run(context.Background(), Request{Message: "x"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
