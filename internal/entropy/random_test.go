package entropy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNilClientFallsBack(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatal("nil client enabled")
	}
	if NewClient("") != nil {
		t.Fatal("empty key produced a client")
	}
	if s := c.Seed(context.Background()); s < 0 {
		t.Errorf("seed = %d, want non-negative", s)
	}
}

func TestResolveSeedKeepsConfigured(t *testing.T) {
	if got := ResolveSeed(context.Background(), 42, nil); got != 42 {
		t.Errorf("seed = %d, want 42", got)
	}
}

func TestSeedFromAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params struct {
				APIKey string `json:"apiKey"`
			} `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "generateIntegers" || req.Params.APIKey != "k" {
			w.Write([]byte(`{"error":{"message":"bad request"}}`))
			return
		}
		w.Write([]byte(`{"result":{"random":{"data":[1,5]}}}`))
	}))
	defer srv.Close()

	c := NewClient("k")
	c.endpoint = srv.URL
	if got := c.Seed(context.Background()); got != 1<<31|5 {
		t.Errorf("seed = %d, want %d", got, int64(1<<31|5))
	}
}

func TestSeedAPIErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer srv.Close()

	c := NewClient("k")
	c.endpoint = srv.URL
	if _, err := c.fetchSeed(context.Background()); err == nil {
		t.Fatal("expected api error")
	}
	if s := c.Seed(context.Background()); s < 0 {
		t.Errorf("fallback seed = %d", s)
	}
}
