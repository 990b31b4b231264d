package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/equitylens/equitylens/internal/config"
	"github.com/equitylens/equitylens/internal/datasource"
	"github.com/equitylens/equitylens/internal/store"
	"github.com/equitylens/equitylens/internal/valuation"
)

const quoteSummaryFixture = `{
  "quoteSummary": {
    "result": [{
      "price": {
        "shortName": "Apple Inc.",
        "currency": "USD",
        "exchangeName": "NasdaqGS",
        "regularMarketPrice": {"raw": 180.5, "fmt": "180.50"},
        "regularMarketChange": {"raw": 2.5, "fmt": "2.50"},
        "regularMarketChangePercent": {"raw": 0.014, "fmt": "1.40%"},
        "regularMarketPreviousClose": {"raw": 178.0, "fmt": "178.00"},
        "regularMarketVolume": {"raw": 55000000, "fmt": "55M"},
        "marketCap": {"raw": 2800000000000, "fmt": "2.8T"},
        "regularMarketTime": 1756000000
      },
      "summaryDetail": {
        "fiftyTwoWeekHigh": {"raw": 200.0, "fmt": "200.00"},
        "fiftyTwoWeekLow": {"raw": 150.0, "fmt": "150.00"},
        "trailingPE": {"raw": 29.5, "fmt": "29.50"},
        "dividendYield": {"raw": 0.0055, "fmt": "0.55%"}
      }
    }],
    "error": null
  }
}`

// testServer wires the API against stub data sources. All provider traffic
// goes to the given upstream handler.
func testServer(t *testing.T, upstream http.HandlerFunc) (*Server, *httptest.Server) {
	t.Helper()

	stub := httptest.NewServer(upstream)
	t.Cleanup(stub.Close)

	agg := datasource.NewAggregatorWithSources(
		datasource.NewYahooWithBaseURL(stub.URL),
		datasource.NewStockAnalysisWithBaseURL(stub.URL),
		datasource.NewFMPWithBaseURL(stub.URL, ""),
		datasource.NewNewsWithSources(nil, stub.URL),
	)

	cfg := &config.Config{}
	cfg.API.CORSOrigins = []string{"*"}

	srv := NewServerWithDeps(cfg, agg, nil, nil)
	go srv.wsHub.Run()
	return srv, stub
}

func failingUpstream(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "upstream exploded", http.StatusInternalServerError)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func doRequest(t *testing.T, srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("health success = false, want true")
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("health data is %T, want object", resp.Data)
	}
	if data["status"] != "ok" {
		t.Errorf("health status field = %v, want ok", data["status"])
	}
	if data["persistence"] != false {
		t.Errorf("persistence = %v, want false with nil store", data["persistence"])
	}
}

func TestQuoteEndpoint(t *testing.T) {
	srv, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/v10/finance/quoteSummary/") {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(quoteSummaryFixture)) //nolint:errcheck
			return
		}
		http.NotFound(w, r)
	})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quote/aapl", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("quote status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if got := data["last_price"].(float64); got != 180.5 {
		t.Errorf("last_price = %v, want 180.5", got)
	}
	if got := data["ticker"].(string); got != "AAPL" {
		t.Errorf("ticker = %q, want AAPL (normalized)", got)
	}
}

func TestQuoteUpstreamFailure(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quote/AAPL", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("quote status = %d, want 502; body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("success = true on upstream failure")
	}
	if resp.Error == "" {
		t.Error("error message empty on upstream failure")
	}
}

func TestCustomValuationInvalidBody(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/valuation/AAPL", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !strings.Contains(resp.Error, "invalid request body") {
		t.Errorf("error = %q, want invalid request body", resp.Error)
	}
}

func TestReverseRejectsUnknownMode(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/reverse/AAPL?mode=margin-only", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReverseQueryOverrides(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  valuation.ReverseOptions
	}{
		{
			"all overrides",
			"wacc=0.09&terminal_growth=0.02&tax=0.30&years=7",
			valuation.ReverseOptions{WACC: 0.09, TerminalGrowth: 0.02, TaxRate: 0.30, ProjectionYears: 7},
		},
		{
			"tax alone",
			"tax=0.21",
			valuation.ReverseOptions{TaxRate: 0.21},
		},
		{
			"malformed values ignored",
			"wacc=ten&tax=&years=-3",
			valuation.ReverseOptions{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			if got := reverseOptionsFromQuery(q); got != tt.want {
				t.Errorf("reverseOptionsFromQuery(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestRunsWithoutPersistence(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/runs/AAPL", "")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501 when persistence disabled", rec.Code)
	}
}

func TestConfigEndpointHidesSecrets(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)
	srv.cfg.Data.FMPKey = "super-secret-fmp-key"
	srv.cfg.Database.URL = "postgres://user:hunter2@db:5432/equitylens"

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "super-secret-fmp-key") {
		t.Error("response leaks FMP key")
	}
	if strings.Contains(body, "hunter2") {
		t.Error("response leaks database credentials")
	}

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["data"].(map[string]interface{})["fmp_key_set"] != true {
		t.Error("fmp_key_set = false, want true")
	}
	if data["database"].(map[string]interface{})["enabled"] != true {
		t.Error("database.enabled = false, want true")
	}
}

func TestConfigKeysEndpoint(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/config/keys", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	keys, ok := resp.Data.([]interface{})
	if !ok || len(keys) == 0 {
		t.Fatalf("config keys data = %v, want non-empty list", resp.Data)
	}
}

func TestSPAFallbackServesIndex(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodGet, "/some/client/route", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("content-type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "EquityLens") {
		t.Error("fallback body does not contain the dashboard page")
	}
}

func TestUnknownAPIRouteNotSwallowedBySPA(t *testing.T) {
	srv, _ := testServer(t, failingUpstream)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quote/", "")
	if rec.Code == http.StatusOK {
		t.Errorf("empty ticker path returned 200, want an error status")
	}
}

func TestWSHubBroadcast(t *testing.T) {
	hub := NewWSHub(nil)
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(client)

	hub.Broadcast(WSMessage{Type: "quote", Data: map[string]string{"ticker": "AAPL"}})

	select {
	case msg := <-client.send:
		if msg.Type != "quote" {
			t.Errorf("message type = %q, want quote", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast message never arrived")
	}

	hub.Unregister(client)
	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client count never dropped to zero after unregister")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWSHubDropsSlowClient(t *testing.T) {
	hub := NewWSHub(nil)
	go hub.Run()

	// Unbuffered send channel: any broadcast marks the client slow.
	client := &WSClient{hub: hub, send: make(chan WSMessage)}
	hub.Register(client)

	hub.Broadcast(WSMessage{Type: "quote"})

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client was never dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ticker not found", datasource.ErrTickerNotFound, http.StatusNotFound},
		{"rate limited", datasource.ErrRateLimited, http.StatusBadGateway},
		{"http error", &datasource.ErrHTTP{StatusCode: 503}, http.StatusBadGateway},
		{"wrapped http error", fmt.Errorf("quote: %w", &datasource.ErrHTTP{StatusCode: 429}), http.StatusBadGateway},
		{"invalid assumptions", valuation.ErrInvalidAssumptions, http.StatusBadRequest},
		{"no convergence", fmt.Errorf("solve: %w", valuation.ErrNoConvergence), http.StatusUnprocessableEntity},
		{"store disabled", store.ErrDisabled, http.StatusNotImplemented},
		{"run not found", store.ErrNotFound, http.StatusNotFound},
		{"anything else", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
