package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"moneymonitor/internal/log"
	"moneymonitor/internal/services"
	"moneymonitor/internal/store/memory"
)

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	srv := NewServer(":0", Options{
		Expenses:     services.NewExpenseService(st, nil, logger),
		Reports:      services.NewReportService(st),
		Merchants:    services.NewMerchantDirectory(st),
		Pinger:       st,
		StoreTimeout: time.Second,
		Logger:       logger,
	})
	return srv, st
}

func do(t *testing.T, srv *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode body: %v (%s)", method, target, err, rr.Body.String())
		}
	}
	return rr, out
}

func addExpense(t *testing.T, srv *Server, userID, body string) string {
	t.Helper()
	rr, out := do(t, srv, http.MethodPost, "/expenses/add?userId="+userID, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("add expense status=%d body=%s", rr.Code, rr.Body.String())
	}
	id, _ := out["expenseId"].(string)
	if id == "" {
		t.Fatalf("missing expenseId in %v", out)
	}
	return id
}

func assertBadRequest(t *testing.T, rr *httptest.ResponseRecorder, out map[string]any) {
	t.Helper()
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rr.Code, rr.Body.String())
	}
	if out["success"] != false {
		t.Fatalf("expected success=false, got %v", out)
	}
	if msg, _ := out["error"].(string); msg == "" || out["error"] != out["detail"] {
		t.Fatalf("error and detail should carry the same message: %v", out)
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr, out := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK || out["service"] != "Money Monitor API" {
		t.Fatalf("index status=%d body=%v", rr.Code, out)
	}

	rr, out = do(t, srv, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status=%d", rr.Code)
	}
	if out["status"] != "healthy" || out["version"] != "1.0.0" || out["success"] != true {
		t.Fatalf("unexpected health body: %v", out)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers")
	}

	rr, _ = do(t, srv, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr, _ = do(t, srv, http.MethodDelete, "/expenses/totals/u1", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestReady(t *testing.T) {
	srv, _ := newTestServer(t)
	if rr, out := do(t, srv, http.MethodGet, "/ready", ""); rr.Code != http.StatusOK || out["status"] != "ready" {
		t.Fatalf("ready status=%d body=%v", rr.Code, out)
	}

	srv.pinger = failingPinger{}
	rr, out := do(t, srv, http.MethodGet, "/ready", "")
	if rr.Code != http.StatusServiceUnavailable || out["success"] != false {
		t.Fatalf("expected 503, got %d %v", rr.Code, out)
	}

	srv.pinger = nil
	if rr, _ := do(t, srv, http.MethodGet, "/ready", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without pinger, got %d", rr.Code)
	}
}

func TestAddAndListExpenses(t *testing.T) {
	srv, _ := newTestServer(t)

	addExpense(t, srv, "u1", `{"item":"petrol","amount":100.00,"type":"personal","category":"consumable","note":"filled tank","date":"2025-03-01"}`)
	addExpense(t, srv, "u1", `{"item":"laptop","amount":"50","type":"business","date":"2025-03-02T10:00:00"}`)
	addExpense(t, srv, "u2", `{"item":"coffee","amount":3,"type":"personal","date":"2025-03-03"}`)

	rr, out := do(t, srv, http.MethodGet, "/expenses/u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	if out["count"] != float64(2) {
		t.Fatalf("count=%v", out["count"])
	}
	expenses := out["expenses"].([]any)
	first := expenses[0].(map[string]any)
	if first["item"] != "laptop" {
		t.Fatalf("expected newest first, got %v", first)
	}
	second := expenses[1].(map[string]any)
	if second["category"] != "consumable" || second["source"] != "manual" || second["userId"] != "u1" {
		t.Fatalf("unexpected stored record: %v", second)
	}

	_, out = do(t, srv, http.MethodGet, "/expenses/u1?type=business", "")
	if out["count"] != float64(1) {
		t.Fatalf("filtered count=%v", out["count"])
	}

	rr, out = do(t, srv, http.MethodGet, "/expenses/u1?type=bogus", "")
	assertBadRequest(t, rr, out)

	_, out = do(t, srv, http.MethodGet, "/expenses/nobody", "")
	if out["count"] != float64(0) || out["expenses"] == nil {
		t.Fatalf("expected empty list, got %v", out)
	}
}

func TestAddExpenseDefaults(t *testing.T) {
	srv, _ := newTestServer(t)

	rr, out := do(t, srv, http.MethodPost, "/expenses/add", `{"userId":"u9","item":"bus","amount":2.5,"type":"personal"}`)
	if rr.Code != http.StatusOK || out["message"] != "Expense added successfully" {
		t.Fatalf("add status=%d body=%v", rr.Code, out)
	}

	_, out = do(t, srv, http.MethodGet, "/expenses/u9", "")
	rec := out["expenses"].([]any)[0].(map[string]any)
	if rec["category"] != "uncategorized" {
		t.Fatalf("category=%v", rec["category"])
	}
	date, _ := rec["date"].(string)
	if _, err := time.Parse("2006-01-02T15:04:05.000000", date); err != nil {
		t.Fatalf("server date %q not in expected layout: %v", date, err)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := map[string]string{
		"bad amount":      `{"item":"x","amount":"abc","type":"personal"}`,
		"negative amount": `{"item":"x","amount":-5,"type":"personal"}`,
		"missing amount":  `{"item":"x","type":"personal"}`,
		"missing item":    `{"amount":5,"type":"personal"}`,
		"bad type":        `{"item":"x","amount":5,"type":"family"}`,
		"bad source":      `{"item":"x","amount":5,"type":"personal","source":"email"}`,
		"bad date":        `{"item":"x","amount":5,"type":"personal","date":"March 1st"}`,
		"malformed json":  `{"item":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr, out := do(t, srv, http.MethodPost, "/expenses/add?userId=u1", body)
			assertBadRequest(t, rr, out)
		})
	}

	rr, out := do(t, srv, http.MethodPost, "/expenses/add", `{"item":"x","amount":5,"type":"personal"}`)
	assertBadRequest(t, rr, out)

	rr, out = do(t, srv, http.MethodPost, "/expenses/add?userId=u1", "")
	assertBadRequest(t, rr, out)
}

func TestTotals(t *testing.T) {
	srv, _ := newTestServer(t)
	addExpense(t, srv, "u1", `{"item":"a","amount":100,"type":"personal","date":"2025-01-01"}`)
	addExpense(t, srv, "u1", `{"item":"b","amount":50,"type":"business","date":"2025-01-02"}`)

	rr, out := do(t, srv, http.MethodGet, "/expenses/totals/u1", "")
	if rr.Code != http.StatusOK || out["userId"] != "u1" {
		t.Fatalf("totals status=%d body=%v", rr.Code, out)
	}
	totals := out["totals"].(map[string]any)
	if totals["total"] != float64(150) || totals["personal"] != float64(100) || totals["business"] != float64(50) {
		t.Fatalf("unexpected totals: %v", totals)
	}
}

func TestCategorySummary(t *testing.T) {
	srv, _ := newTestServer(t)
	addExpense(t, srv, "u1", `{"item":"a","amount":75,"type":"personal","category":"food","date":"2025-01-01"}`)
	addExpense(t, srv, "u1", `{"item":"b","amount":25,"type":"personal","date":"2025-01-02"}`)
	addExpense(t, srv, "u1", `{"item":"c","amount":40,"type":"business","category":"travel","date":"2025-01-03"}`)

	rr, out := do(t, srv, http.MethodPost, "/ai/category-summary?userId=u1&type=personal", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if out["type"] != "personal" || out["totalSpent"] != float64(100) {
		t.Fatalf("unexpected summary: %v", out)
	}
	cats := out["categories"].(map[string]any)
	food := cats["food"].(map[string]any)
	if food["percentage"] != float64(75) || food["count"] != float64(1) {
		t.Fatalf("food=%v", food)
	}
	if _, ok := cats["uncategorized"]; !ok {
		t.Fatalf("expected uncategorized bucket: %v", cats)
	}
	if _, ok := cats["travel"]; ok {
		t.Fatalf("business record leaked into personal summary")
	}

	_, out = do(t, srv, http.MethodPost, "/ai/category-summary?userId=u1", "")
	if out["type"] != "all" || out["totalSpent"] != float64(140) {
		t.Fatalf("unexpected unfiltered summary: %v", out)
	}

	rr, out = do(t, srv, http.MethodPost, "/ai/category-summary", "")
	assertBadRequest(t, rr, out)
}

func TestMonthlyTrend(t *testing.T) {
	srv, _ := newTestServer(t)
	addExpense(t, srv, "u1", `{"item":"a","amount":10,"type":"personal","date":"2025-02-10"}`)
	addExpense(t, srv, "u1", `{"item":"b","amount":5,"type":"personal","date":"2025-01-31"}`)
	addExpense(t, srv, "u1", `{"item":"c","amount":7,"type":"personal","date":"2025-02-01T08:00:00"}`)

	rr, out := do(t, srv, http.MethodPost, "/ai/monthly-trend?userId=u1", "")
	if rr.Code != http.StatusOK || out["type"] != "all" {
		t.Fatalf("status=%d body=%v", rr.Code, out)
	}
	trend := out["trend"].(map[string]any)
	if len(trend) != 2 {
		t.Fatalf("expected two months, got %v", trend)
	}
	feb := trend["2025-02"].(map[string]any)
	if feb["total"] != float64(17) || feb["count"] != float64(2) {
		t.Fatalf("feb=%v", feb)
	}
	if i, j := strings.Index(rr.Body.String(), "2025-01"), strings.Index(rr.Body.String(), "2025-02"); i < 0 || i > j {
		t.Fatalf("months not in ascending order: %s", rr.Body.String())
	}
}

func TestMerchantSpend(t *testing.T) {
	srv, _ := newTestServer(t)
	addExpense(t, srv, "u1", `{"item":"Fuel","amount":150.50,"type":"personal","category":"transport","date":"2025-03-01"}`)
	addExpense(t, srv, "u1", `{"item":"Shell","amount":50,"type":"personal","date":"2025-03-02"}`)
	addExpense(t, srv, "u1", `{"item":"fuel","amount":20,"type":"business","category":"transport","date":"2025-04-01"}`)

	rr, out := do(t, srv, http.MethodPost, "/ai/merchant-spend",
		`{"merchant":"fuel","userId":"u1","startDate":"2025-03-01","endDate":"2025-03-31"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if out["transactionCount"] != float64(1) || out["totalSpent"] != 150.5 || out["merchant"] != "fuel" {
		t.Fatalf("unexpected report: %v", out)
	}

	_, out = do(t, srv, http.MethodPost, "/ai/merchant-spend", `{"merchant":"FUEL","userId":"u1"}`)
	if out["transactionCount"] != float64(2) {
		t.Fatalf("expected both fuel records without a range: %v", out)
	}
	byCat := out["byCategory"].(map[string]any)
	if byCat["transport"] != 170.5 {
		t.Fatalf("byCategory=%v", byCat)
	}

	_, out = do(t, srv, http.MethodPost, "/ai/merchant-spend", `{"merchant":"nowhere","userId":"u1"}`)
	if out["transactionCount"] != float64(0) || out["expenses"] == nil {
		t.Fatalf("expected empty report: %v", out)
	}

	_, out = do(t, srv, http.MethodPost, "/ai/merchant-spend", `{"merchant":" Fuel ","userId":"u1"}`)
	if out["transactionCount"] != float64(2) {
		t.Fatalf("padded merchant should match: %v", out)
	}

	rr, out = do(t, srv, http.MethodPost, "/ai/merchant-spend", `{"userId":"u1"}`)
	assertBadRequest(t, rr, out)
	rr, out = do(t, srv, http.MethodPost, "/ai/merchant-spend", `{"merchant":"fuel"}`)
	assertBadRequest(t, rr, out)
}

func TestMerchantSpendDateTimeBoundary(t *testing.T) {
	srv, _ := newTestServer(t)
	addExpense(t, srv, "u1", `{"item":"Fuel","amount":150.50,"type":"personal","date":"2025-03-31T10:00:00"}`)

	_, out := do(t, srv, http.MethodPost, "/ai/merchant-spend",
		`{"merchant":"fuel","userId":"u1","startDate":"2025-03-01","endDate":"2025-03-31"}`)
	if out["transactionCount"] != float64(0) || out["totalSpent"] != float64(0) {
		t.Fatalf("timestamped record on the end day should be outside the range: %v", out)
	}

	_, out = do(t, srv, http.MethodPost, "/ai/merchant-spend",
		`{"merchant":"fuel","userId":"u1","startDate":"2025-03-31","endDate":"2025-04-30"}`)
	if out["transactionCount"] != float64(1) || out["totalSpent"] != 150.5 {
		t.Fatalf("timestamped record on the start day should be inside the range: %v", out)
	}
}

func TestAddExpenseExponentAmount(t *testing.T) {
	srv, _ := newTestServer(t)
	addExpense(t, srv, "u1", `{"item":"Fuel","amount":1e2,"type":"personal","date":"2025-03-01"}`)

	_, out := do(t, srv, http.MethodGet, "/expenses/totals/u1", "")
	if totals := out["totals"].(map[string]any); totals["total"] != float64(100) {
		t.Fatalf("unexpected totals: %v", totals)
	}
}

func TestMerchantSaveAndLookup(t *testing.T) {
	srv, _ := newTestServer(t)

	q := url.Values{"userId": {"u1"}, "merchant": {"HDFC Bank"}, "category": {"banking"}, "type": {"business"}}
	rr, out := do(t, srv, http.MethodPost, "/merchants/save?"+q.Encode(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}
	if out["message"] != "Merchant 'HDFC Bank' saved with category 'banking'" {
		t.Fatalf("message=%v", out["message"])
	}

	rr, out = do(t, srv, http.MethodGet, "/merchants/lookup/u1/hdfc%20bank", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("lookup status=%d", rr.Code)
	}
	if out["found"] != true || out["category"] != "banking" || out["type"] != "business" || out["merchant"] != "hdfc bank" {
		t.Fatalf("unexpected lookup: %v", out)
	}

	_, out = do(t, srv, http.MethodGet, "/merchants/lookup/u1/%20HDFC%20Bank%20", "")
	if out["found"] != true || out["merchant"] != "HDFC Bank" {
		t.Fatalf("padded lookup should find the mapping: %v", out)
	}

	_, out = do(t, srv, http.MethodGet, "/merchants/lookup/u2/hdfc%20bank", "")
	if out["found"] != false {
		t.Fatalf("mapping leaked across users: %v", out)
	}
	if _, ok := out["category"]; ok {
		t.Fatalf("miss should not carry a category: %v", out)
	}

	bad := url.Values{"userId": {"u1"}, "merchant": {"x"}, "category": {"y"}, "type": {"family"}}
	rr, out = do(t, srv, http.MethodPost, "/merchants/save?"+bad.Encode(), "")
	assertBadRequest(t, rr, out)

	rr, out = do(t, srv, http.MethodPost, "/merchants/save?userId=u1&merchant=x", "")
	assertBadRequest(t, rr, out)
}

func TestCORSPreflightOnAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/expenses/add", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight status=%d headers=%v", rr.Code, rr.Header())
	}
}

func TestShutdownTwice(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
