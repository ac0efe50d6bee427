package rateoracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestUSDPinnedToOneWithoutNetworkCall(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		json.NewEncoder(w).Encode(map[string]float64{"ETH": 3000})
	}))
	defer srv.Close()

	c := New(srv.URL)
	price, err := c.USDPrice(context.Background(), "USD")
	if err != nil {
		t.Fatal(err)
	}
	if price != 1 {
		t.Fatalf("USD price = %v, want 1", price)
	}
	if hits != 0 {
		t.Fatalf("expected no network call for USD, got %d", hits)
	}
}

func TestUSDPriceFetchesAndCaches(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		json.NewEncoder(w).Encode(map[string]float64{"ETH": 3000})
	}))
	defer srv.Close()

	c := New(srv.URL)
	for i := 0; i < 3; i++ {
		price, err := c.USDPrice(context.Background(), "ETH")
		if err != nil {
			t.Fatal(err)
		}
		if price != 3000 {
			t.Fatalf("ETH price = %v, want 3000", price)
		}
	}
	if hits != 1 {
		t.Fatalf("expected 1 fetch within TTL, got %d", hits)
	}
}

func TestUSDPriceServesStaleOnFailureAfterInitialSuccess(t *testing.T) {
	var fail int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&fail) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"ETH": 3000})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.USDPrice(context.Background(), "ETH"); err != nil {
		t.Fatal(err)
	}

	// Force expiry and backend failure: must still serve the stale snapshot.
	c.mu.Lock()
	c.last.takenAt = time.Now().Add(-2 * TTL)
	c.mu.Unlock()
	atomic.StoreInt32(&fail, 1)

	price, err := c.USDPrice(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if price != 3000 {
		t.Fatalf("stale price = %v, want 3000", price)
	}
}

func TestUSDPriceFailsWhenNoSnapshotEverObtained(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.USDPrice(context.Background(), "ETH"); err == nil {
		t.Fatal("expected error when oracle has never succeeded")
	}
}
