package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFetchResultsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/flight/search" {
			t.Errorf("Expected path /api/flight/search, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("origin") != "SYD" {
			t.Errorf("Expected origin SYD, got %s", r.URL.Query().Get("origin"))
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Expected bearer token, got '%s'", r.Header.Get("Authorization"))
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"offers": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "cards-test", nil)
	body, err := c.FetchResults(context.Background(), "flight", url.Values{"origin": {"SYD"}})
	if err != nil {
		t.Fatalf("FetchResults failed: %v", err)
	}
	if string(body) != `{"offers": []}` {
		t.Errorf("Unexpected body %s", body)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

func TestFetchResultsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "origin is required"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", nil)
	_, err := c.FetchResults(context.Background(), "hotel", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Message != "origin is required" {
		t.Errorf("Expected backend message, got '%s'", apiErr.Message)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
}

func TestBlockNextSearchSendsEmptyBody(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "", "", nil)
	if err := c.BlockNextSearch(context.Background(), TargetHotelCheckout); err != nil {
		t.Fatalf("BlockNextSearch failed: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/widget/hotel_checkout/block_next" {
		t.Errorf("Expected POST /widget/hotel_checkout/block_next, got %s %s", gotMethod, gotPath)
	}
	if len(gotBody) != 0 {
		t.Errorf("Expected empty body, got %q", gotBody)
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/api/hotel/payment/create-intent" || req["ctx_id"] != "ctx_123" {
			t.Errorf("Unexpected request %s %v", r.URL.Path, req)
		}
		w.Write([]byte(`{"paymentIntentId": "pi_1", "clientSecret": "cs_1", "amount": "120.50", "currency": "AUD"}`))
	}))
	defer srv.Close()

	intent, err := NewClient(srv.URL, "", "", nil).CreatePaymentIntent(context.Background(), "hotel", "ctx_123")
	if err != nil {
		t.Fatalf("CreatePaymentIntent failed: %v", err)
	}

	want := PaymentIntent{CtxID: "ctx_123", ID: "pi_1", ClientSecret: "cs_1", Amount: "120.50", Currency: "AUD"}
	if diff := cmp.Diff(want, intent); diff != "" {
		t.Errorf("Unexpected intent (-want +got):\n%s", diff)
	}
}

func TestConfirmBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["payment_intent_id"] != "pi_1" {
			t.Errorf("Expected payment_intent_id pi_1, got %v", req)
		}
		w.Write([]byte(`{"booking_reference": "BK-42", "amount": 120.5, "currency": "AUD"}`))
	}))
	defer srv.Close()

	conf, err := NewClient(srv.URL, "", "", nil).ConfirmBooking(context.Background(), "flight", "ctx_123", "pi_1")
	if err != nil {
		t.Fatalf("ConfirmBooking failed: %v", err)
	}
	if conf.Reference != "BK-42" || conf.Amount != "120.5" || conf.CtxID != "ctx_123" {
		t.Errorf("Unexpected confirmation %+v", conf)
	}
}

func TestPaymentErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unknown context", http.StatusNotFound, `{"error": "ctx not found"}`, ErrUnknownContext},
		{"expired context", http.StatusGone, `{"error": "ctx expired"}`, ErrUnknownContext},
		{"payment incomplete", http.StatusBadRequest, `{"error": "Payment not completed. Status: requires_action"}`, ErrPaymentNotSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", "", nil).ConfirmBooking(context.Background(), "hotel", "ctx_1", "pi_1")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckoutStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ctx_id") != "ctx_123" {
			t.Errorf("Expected ctx_id query, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"ctx_id": "ctx_123", "status": "paid", "type": "hotel"}`))
	}))
	defer srv.Close()

	status, err := NewClient(srv.URL, "", "", nil).CheckoutStatus(context.Background(), "ctx_123")
	if err != nil {
		t.Fatalf("CheckoutStatus failed: %v", err)
	}
	if status.Status != "paid" || status.Type != "hotel" {
		t.Errorf("Unexpected status %+v", status)
	}
}
