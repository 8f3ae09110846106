// Package paymenttest provides a fake orders API and gateway-side signing for tests.
package paymenttest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Sign computes the signature the gateway returns for a paid order.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Server answers POST /v1/orders with sequential order ids (order_1, order_2, ...).
type Server struct {
	*httptest.Server
	calls atomic.Int32
}

func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			http.NotFound(w, r)
			return
		}
		n := s.calls.Add(1)
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		in["id"] = fmt.Sprintf("order_%d", n)
		in["status"] = "created"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(in)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Calls() int { return int(s.calls.Load()) }
