package inboxapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inbox-triage-agent/internal/domain/model"
	"inbox-triage-agent/internal/infra/retry"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	logger := zerolog.Nop()
	c, err := NewClient(srv.URL+"/api/v1", "secret-token", 5*time.Second, 3, &logger)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	// keep retries fast in tests
	c.policy = retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return c
}

func TestFetchMessages(t *testing.T) {
	t.Run("parses a message batch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/messages" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
				t.Errorf("missing bearer token, got %q", got)
			}
			if got := r.URL.Query().Get("classification"); got != "other" {
				t.Errorf("unexpected classification filter %q", got)
			}
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("unexpected limit %q", got)
			}
			_, _ = w.Write([]byte(`[{"id":1,"subject":"Congrats!","snippet":"We'd like to extend an offer."}]`))
		}))
		defer srv.Close()

		messages, err := newTestClient(t, srv).FetchMessages(context.Background(), model.LabelOther, 10)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(messages) != 1 || messages[0].ID != 1 || messages[0].Subject != "Congrats!" {
			t.Errorf("unexpected messages: %+v", messages)
		}
	})

	t.Run("rejects a non-array body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"messages":[]}`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).FetchMessages(context.Background(), model.LabelOther, 10)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got: %v", err)
		}
	})

	t.Run("rejects a null body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`null`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).FetchMessages(context.Background(), model.LabelOther, 10)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got: %v", err)
		}
	})

	t.Run("rejects an element without an id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"id":1,"subject":"ok"},{}]`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).FetchMessages(context.Background(), model.LabelOther, 10)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got: %v", err)
		}
		if !strings.Contains(err.Error(), "index 1") {
			t.Errorf("error should name the bad element, got: %v", err)
		}
	})

	t.Run("rejects an element of the wrong type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"id":"not-a-number"}]`))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).FetchMessages(context.Background(), model.LabelOther, 10)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got: %v", err)
		}
	})

	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		messages, err := newTestClient(t, srv).FetchMessages(context.Background(), model.LabelOther, 10)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(messages) != 0 {
			t.Errorf("expected empty batch, got %+v", messages)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).FetchMessages(context.Background(), model.LabelOther, 10)
		if err == nil {
			t.Fatal("expected an error")
		}
		if calls != 1 {
			t.Errorf("4xx must not be retried; got %d calls", calls)
		}
	})
}

func TestClaimMessage(t *testing.T) {
	claim := func(t *testing.T, handler http.HandlerFunc) (bool, error) {
		t.Helper()
		srv := httptest.NewServer(handler)
		defer srv.Close()
		return newTestClient(t, srv).ClaimMessage(context.Background(), 42)
	}

	t.Run("granted", func(t *testing.T) {
		claimed, err := claim(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch || r.URL.Path != "/api/v1/messages/42/claim" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"triage_in_progress":true}`))
		})
		if err != nil || !claimed {
			t.Errorf("expected claimed=true, got %v %v", claimed, err)
		}
	})

	t.Run("explicitly not in progress", func(t *testing.T) {
		claimed, err := claim(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"triage_in_progress":false}`))
		})
		if err != nil || claimed {
			t.Errorf("expected claimed=false, got %v %v", claimed, err)
		}
	})

	t.Run("empty success body defaults to granted", func(t *testing.T) {
		claimed, err := claim(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if err != nil || !claimed {
			t.Errorf("expected optimistic claimed=true, got %v %v", claimed, err)
		}
	})

	t.Run("404 means gone, not an error", func(t *testing.T) {
		claimed, err := claim(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		if err != nil || claimed {
			t.Errorf("expected claimed=false without error, got %v %v", claimed, err)
		}
	})

	t.Run("409 means already claimed", func(t *testing.T) {
		claimed, err := claim(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})
		if err != nil || claimed {
			t.Errorf("expected claimed=false without error, got %v %v", claimed, err)
		}
	})

	t.Run("other 4xx is logged and treated as not claimed", func(t *testing.T) {
		claimed, err := claim(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		if err != nil || claimed {
			t.Errorf("expected claimed=false without error, got %v %v", claimed, err)
		}
	})

	t.Run("5xx exhausts retries and surfaces hard", func(t *testing.T) {
		calls := 0
		_, err := claim(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
	})

	t.Run("second claim of a claimed message returns false", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls == 1 {
				_, _ = w.Write([]byte(`{"triage_in_progress":true}`))
				return
			}
			w.WriteHeader(http.StatusConflict)
		}))
		defer srv.Close()
		c := newTestClient(t, srv)

		first, err := c.ClaimMessage(context.Background(), 7)
		if err != nil || !first {
			t.Fatalf("first claim: got %v %v", first, err)
		}
		second, err := c.ClaimMessage(context.Background(), 7)
		if err != nil || second {
			t.Errorf("second claim: expected false, got %v %v", second, err)
		}
		if calls != 2 {
			t.Errorf("conflict must not be retried; got %d calls", calls)
		}
	})
}

func TestUpdateMessage(t *testing.T) {
	t.Run("sends payload with absent fields omitted", func(t *testing.T) {
		var body []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch || r.URL.Path != "/api/v1/messages/15" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			body, _ = io.ReadAll(r.Body)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		err := newTestClient(t, srv).UpdateMessage(context.Background(), 15, model.UpdatePayload{
			Classification: model.LabelRejection,
			ClassifiedBy:   model.ClassifiedByRules,
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			t.Fatalf("unmarshal sent body: %v", err)
		}
		for _, field := range []string{"confidence", "reason", "raw_response"} {
			if _, ok := decoded[field]; ok {
				t.Errorf("field %q must be omitted, body: %s", field, body)
			}
		}
		if decoded["classification"] != "rejection" || decoded["classified_by"] != "rules" {
			t.Errorf("unexpected body: %s", body)
		}
	})

	t.Run("failure after retries is a hard error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := newTestClient(t, srv).UpdateMessage(context.Background(), 15, model.UpdatePayload{
			Classification: model.LabelOffer,
			ClassifiedBy:   model.ClassifiedByLLM,
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got: %v", err)
		}
		if !strings.Contains(apiErr.Error(), "update_message") {
			t.Errorf("error should name the operation: %v", apiErr)
		}
	})
}
