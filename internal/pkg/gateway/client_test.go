package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		MerchantID:    "merchant-test",
		SigningSecret: "secret",
	})
}

func TestCreateIntent_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/intents" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if body["merchant_id"] != "merchant-test" {
			t.Errorf("expected merchant_id to be forwarded, got %v", body["merchant_id"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"order_ref":   "gw_ord_1",
			"payment_url": "https://gw.test/pay/gw_ord_1",
		})
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{
		Amount:   20,
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if resp.OrderRef != "gw_ord_1" {
		t.Fatalf("unexpected order ref: %s", resp.OrderRef)
	}
	if resp.PaymentURL == "" {
		t.Fatal("expected payment url")
	}
}

func TestCreateIntent_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{Amount: 20})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCreateIntent_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{Amount: 20})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCreateIntent_MissingOrderRefIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"payment_url": "https://gw.test/pay"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{Amount: 20})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCreateIntent_InvalidAmount(t *testing.T) {
	_, err := newTestClient("http://gateway.invalid").CreateIntent(context.Background(), CreateIntentRequest{Amount: 0})
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected local validation error, got %v", err)
	}
}
