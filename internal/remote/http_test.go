package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"paisa/internal/testutil"
)

func TestCheck(t *testing.T) {
	t.Run("healthy_peer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/sync/health" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("X-API-Key") != "test-key" {
				t.Errorf("expected API key header, got %q", r.Header.Get("X-API-Key"))
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		peer := NewHTTPPeer(server.URL, "test-key", server.Client())
		testutil.AssertNoError(t, peer.Check(context.Background()))
	})

	t.Run("unhealthy_peer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		peer := NewHTTPPeer(server.URL, "test-key", server.Client())
		testutil.AssertAppError(t, peer.Check(context.Background()), "TRANSPORT_FAILURE")
	})

	t.Run("unreachable_peer", func(t *testing.T) {
		peer := NewHTTPPeer("http://127.0.0.1:1", "test-key", http.DefaultClient)
		testutil.AssertAppError(t, peer.Check(context.Background()), "TRANSPORT_FAILURE")
	})
}

func TestPush(t *testing.T) {
	t.Run("round_trips_batch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/sync/push" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			var body struct {
				Entries []PushEntry `json:"entries"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decoding push body: %v", err)
			}
			if len(body.Entries) != 1 || body.Entries[0].Record.TransactionID != "tx-1" {
				t.Errorf("unexpected push body: %+v", body)
			}

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []PushResult{{TransactionID: "tx-1", AcceptedVersion: 1}},
			})
		}))
		defer server.Close()

		peer := NewHTTPPeer(server.URL, "test-key", server.Client())
		results, err := peer.Push(context.Background(), []PushEntry{
			{Op: "create", Record: Record{TransactionID: "tx-1", Version: 1}},
		})
		testutil.AssertNoError(t, err)

		if len(results) != 1 || results[0].AcceptedVersion != 1 {
			t.Errorf("unexpected results: %+v", results)
		}
	})

	t.Run("server_error_is_transport_failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		peer := NewHTTPPeer(server.URL, "test-key", server.Client())
		_, err := peer.Push(context.Background(), nil)
		testutil.AssertAppError(t, err, "TRANSPORT_FAILURE")
	})
}

func TestPull(t *testing.T) {
	t.Run("passes_cursor_and_decodes_page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("cursor"); got != "c41" {
				t.Errorf("expected cursor c41, got %q", got)
			}
			_ = json.NewEncoder(w).Encode(PullResponse{
				Changes:    []Record{{TransactionID: "tx-9", Version: 2}},
				NextCursor: "c42",
			})
		}))
		defer server.Close()

		peer := NewHTTPPeer(server.URL, "test-key", server.Client())
		page, err := peer.Pull(context.Background(), "c41")
		testutil.AssertNoError(t, err)

		if len(page.Changes) != 1 || page.Changes[0].TransactionID != "tx-9" {
			t.Errorf("unexpected page: %+v", page)
		}
		if page.NextCursor != "c42" {
			t.Errorf("expected next cursor c42, got %q", page.NextCursor)
		}
	})

	t.Run("omits_empty_cursor", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				t.Errorf("expected no query string, got %q", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(PullResponse{})
		}))
		defer server.Close()

		peer := NewHTTPPeer(server.URL, "test-key", server.Client())
		_, err := peer.Pull(context.Background(), "")
		testutil.AssertNoError(t, err)
	})
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TransactionIDs []string `json:"transaction_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding fetch body: %v", err)
		}
		if len(body.TransactionIDs) != 2 {
			t.Errorf("unexpected ids: %v", body.TransactionIDs)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"records": []Record{{TransactionID: body.TransactionIDs[0]}},
		})
	}))
	defer server.Close()

	peer := NewHTTPPeer(server.URL, "test-key", server.Client())
	records, err := peer.Fetch(context.Background(), []string{"tx-1", "tx-2"})
	testutil.AssertNoError(t, err)

	if len(records) != 1 || records[0].TransactionID != "tx-1" {
		t.Errorf("unexpected records: %+v", records)
	}
}
