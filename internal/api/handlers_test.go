package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"HoldCrypt/internal/collector"
	"HoldCrypt/internal/ledger"
	"HoldCrypt/internal/model"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"
	"HoldCrypt/internal/recorder"
	"HoldCrypt/internal/store"

	"github.com/rs/zerolog"
)

type testServer struct {
	handler http.Handler
	store   *store.SQLiteStore
	fetcher *collector.MockFetcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	fetcher := &collector.MockFetcher{Books: map[string]*model.OrderBook{
		"ETHAUD": {LastUpdateID: 3, Asks: [][]string{{"100", "1"}, {"200", "1"}, {"300", "1"}}},
		"ADAAUD": {LastUpdateID: 3, Asks: [][]string{{"0.5", "10"}}},
		"EMPTY":  {LastUpdateID: 3},
	}}
	snap := pricing.NewSnapshot(s)
	svc := pricing.NewService(collector.NewCollector(fetcher, 50, 0, zerolog.Nop()), snap, recorder.NewNoopRecorder(), zerolog.Nop())
	l := ledger.New(s, zerolog.Nop())
	agg := portfolio.NewAggregator(l, snap, zerolog.Nop())

	h := NewHandlers(l, agg, svc, snap)
	return &testServer{handler: NewRouter(h, "https://holdcrypt.com", zerolog.Nop()), store: s, fetcher: fetcher}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, Response, http.Header) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, resp, rec.Header()
}

func bodyAs[T any](t *testing.T, resp Response) T {
	t.Helper()
	raw, err := json.Marshal(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode body %s: %v", raw, err)
	}
	return v
}

func TestPutUser(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"valid", `{"username":"testuser","first_name":"test","last_name":"user"}`, 200, "successfully added user"},
		{"re-put", `{"username":"testuser","first_name":"new","last_name":"name"}`, 200, "successfully added user"},
		{"empty body", ``, 400, "no body provided"},
		{"bad json", `{"username":`, 400, "failed to parse json body"},
		{"wrong type", `{"username":5}`, 400, "failed to parse json body"},
		{"empty username", `{"username":"","first_name":"a"}`, 400, "username is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := ts.do(t, http.MethodPut, "/users", tt.body)
			if status != tt.status || resp.Message != tt.message {
				t.Errorf("got %d %q, want %d %q", status, resp.Message, tt.status, tt.message)
			}
		})
	}
}

func TestPostTransaction(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPut, "/users", `{"username":"testuser","first_name":"test","last_name":"user"}`)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"valid", `{"username":"testuser","coin":"ETHAUD","amount":10.1,"price":12.5}`, 200, "successfully added transaction"},
		{"disposal", `{"username":"testuser","coin":"ETHAUD","amount":-0.1,"price":13}`, 200, "successfully added transaction"},
		{"unknown owner", `{"username":"ghost","coin":"ETHAUD","amount":1,"price":1}`, 400, "user does not exist"},
		{"missing amount", `{"username":"testuser","coin":"ETHAUD","price":1}`, 400, "missing required fields: amount"},
		{"missing everything", `{}`, 400, "missing required fields: username, coin, amount, price"},
		{"empty body", ``, 400, "no body provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := ts.do(t, http.MethodPost, "/transactions", tt.body)
			if status != tt.status || resp.Message != tt.message {
				t.Errorf("got %d %q (%s), want %d %q", status, resp.Message, resp.Error, tt.status, tt.message)
			}
		})
	}

	doc, err := ts.store.Get(context.Background(), store.Users, "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("append for unknown owner created a document: %s", doc.Body)
	}
}

type failingLedger struct{ err error }

func (f failingLedger) PutUser(context.Context, model.UserProfile) (bool, error) { return false, f.err }
func (f failingLedger) Append(context.Context, model.TransactionRecord) (model.TransactionRecord, error) {
	return model.TransactionRecord{}, f.err
}

func TestPostTransaction_StoreFailure(t *testing.T) {
	h := NewHandlers(failingLedger{err: ledger.ErrStoreUnavailable}, nil, nil, nil)
	handler := NewRouter(h, "", zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"username":"a","coin":"B","amount":1,"price":1}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCoins(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodPut, "/coins", `{"coins":[{"name":"Ethereum","symbol":"ETHAUD"},{"name":"Cardano","symbol":"ADAAUD"}]}`)
	if status != 200 {
		t.Fatalf("put coins: %d %+v", status, resp)
	}
	prices := bodyAs[map[string]priceView](t, resp)
	if prices["ETHAUD"] != (priceView{Name: "Ethereum", Price: 200}) || prices["ADAAUD"].Price != 0.5 {
		t.Errorf("prices = %+v", prices)
	}

	status, resp, _ = ts.do(t, http.MethodGet, "/coins", "")
	if status != 200 {
		t.Fatalf("get coins: %d", status)
	}
	if got := bodyAs[map[string]priceView](t, resp); len(got) != 2 || got["ETHAUD"].Price != 200 {
		t.Errorf("stored prices = %+v", got)
	}
}

func TestPutCoins_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"empty coin", `{"coins":[{"name":"","symbol":""}]}`, 400, "coins[0]: name and symbol are required"},
		{"no coins", `{"coins":[]}`, 400, "no coins provided"},
		{"bad json", `{"coins":`, 400, "failed to parse json body"},
		{"unknown symbol", `{"coins":[{"name":"Nope","symbol":"NOPE"}]}`, 500, "failed to refresh prices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := ts.do(t, http.MethodPut, "/coins", tt.body)
			if status != tt.status || resp.Message != tt.message {
				t.Errorf("got %d %q, want %d %q", status, resp.Message, tt.status, tt.message)
			}
		})
	}
}

func TestPutCoins_PartialFailureKeepsSiblings(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodPut, "/coins",
		`{"coins":[{"name":"Ethereum","symbol":"ETHAUD"},{"name":"Empty","symbol":"EMPTY"},{"name":"Cardano","symbol":"ADAAUD"}]}`)
	if status != 500 {
		t.Fatalf("status = %d, want 500", status)
	}
	if !strings.Contains(resp.Error, "EMPTY") || !strings.Contains(resp.Error, "empty order book") {
		t.Errorf("error = %q", resp.Error)
	}
	written := bodyAs[map[string]priceView](t, resp)
	if len(written) != 2 {
		t.Errorf("written = %+v", written)
	}

	_, resp, _ = ts.do(t, http.MethodGet, "/coins", "")
	if got := bodyAs[map[string]priceView](t, resp); len(got) != 2 {
		t.Errorf("stored = %+v", got)
	}
}

func TestUsers(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPut, "/coins", `{"coins":[{"name":"Ethereum","symbol":"ETHAUD"}]}`)
	ts.do(t, http.MethodPut, "/users", `{"username":"alice","first_name":"Alice","last_name":"A"}`)
	for _, body := range []string{
		`{"username":"alice","coin":"BTCAUD","amount":5,"price":1}`,
		`{"username":"alice","coin":"BTCAUD","amount":-5,"price":1}`,
		`{"username":"alice","coin":"ETHAUD","amount":3,"price":1}`,
		`{"username":"alice","coin":"XYZAUD","amount":2,"price":1}`,
	} {
		if status, resp, _ := ts.do(t, http.MethodPost, "/transactions", body); status != 200 {
			t.Fatalf("append: %d %+v", status, resp)
		}
	}

	status, resp, _ := ts.do(t, http.MethodGet, "/users/alice", "")
	if status != 200 {
		t.Fatalf("get user: %d %+v", status, resp)
	}
	user := bodyAs[userView](t, resp)
	if user.FirstName != "Alice" || len(user.Coins) != 1 {
		t.Fatalf("user = %+v", user)
	}
	if c := user.Coins[0]; c.Symbol != "ETHAUD" || c.Amount != 3 || c.Price != 200 || c.Value != 600 {
		t.Errorf("coin = %+v", c)
	}

	if status, _, _ := ts.do(t, http.MethodGet, "/users/ghost", ""); status != 400 {
		t.Errorf("unknown user status = %d, want 400", status)
	}
}

func TestListUsers_PartialFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPut, "/users", `{"username":"alice","first_name":"Alice","last_name":"A"}`)
	bad := map[string]any{"username": "bob", "first_name": "Bob", "last_name": "B", "transactions": "oops"}
	if err := ts.store.Put(context.Background(), store.Users, "bob", bad, store.Condition{}); err != nil {
		t.Fatal(err)
	}

	status, resp, _ := ts.do(t, http.MethodGet, "/users", "")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(resp.Error, "bob") {
		t.Errorf("error = %q", resp.Error)
	}
	users := bodyAs[[]userView](t, resp)
	if len(users) != 2 || users[0].Username != "alice" || users[0].Error != "" || users[1].Error == "" {
		t.Errorf("users = %+v", users)
	}
}

func TestMalformedPriceOnlyFailsHolders(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPut, "/coins", `{"coins":[{"name":"Ethereum","symbol":"ETHAUD"}]}`)
	bad := map[string]any{"symbol": "XYZAUD", "name": "Xyz", "price": 0}
	if err := ts.store.Put(context.Background(), store.Coins, "XYZAUD", bad, store.Condition{}); err != nil {
		t.Fatal(err)
	}
	ts.do(t, http.MethodPut, "/users", `{"username":"alice","first_name":"Alice","last_name":"A"}`)
	ts.do(t, http.MethodPut, "/users", `{"username":"bob","first_name":"Bob","last_name":"B"}`)
	for _, body := range []string{
		`{"username":"alice","coin":"ETHAUD","amount":3,"price":1}`,
		`{"username":"bob","coin":"XYZAUD","amount":2,"price":1}`,
	} {
		if status, resp, _ := ts.do(t, http.MethodPost, "/transactions", body); status != 200 {
			t.Fatalf("append: %d %+v", status, resp)
		}
	}

	status, resp, _ := ts.do(t, http.MethodGet, "/coins", "")
	if status != 200 || !strings.Contains(resp.Error, "XYZAUD") {
		t.Fatalf("get coins: %d %q", status, resp.Error)
	}
	if got := bodyAs[map[string]priceView](t, resp); len(got) != 1 || got["ETHAUD"].Price != 200 {
		t.Errorf("prices = %+v", got)
	}

	status, resp, _ = ts.do(t, http.MethodGet, "/users/alice", "")
	if status != 200 {
		t.Fatalf("alice: %d %+v", status, resp)
	}
	if user := bodyAs[userView](t, resp); len(user.Coins) != 1 || user.Coins[0].Value != 600 {
		t.Errorf("alice = %+v", user)
	}
	if status, _, _ := ts.do(t, http.MethodGet, "/users/bob", ""); status != 500 {
		t.Errorf("bob status = %d, want 500", status)
	}

	status, resp, _ = ts.do(t, http.MethodGet, "/users", "")
	if status != 200 || !strings.Contains(resp.Error, "bob") || strings.Contains(resp.Error, "alice") {
		t.Fatalf("list users: %d %q", status, resp.Error)
	}
	users := bodyAs[[]userView](t, resp)
	if len(users) != 2 || users[0].Error != "" || !strings.Contains(users[1].Error, "price") {
		t.Errorf("users = %+v", users)
	}
}

func TestHealthAndMiddleware(t *testing.T) {
	ts := newTestServer(t)

	status, resp, hdr := ts.do(t, http.MethodGet, "/health", "")
	if status != 200 || resp.Message != "healthy" {
		t.Errorf("health = %d %+v", status, resp)
	}
	if hdr.Get("Access-Control-Allow-Origin") != "https://holdcrypt.com" {
		t.Errorf("cors origin = %q", hdr.Get("Access-Control-Allow-Origin"))
	}
	if hdr.Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
}
