// Package api serves the HTTP/JSON interface of the valuation service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"HoldCrypt/internal/ledger"
	"HoldCrypt/internal/logger"
	"HoldCrypt/internal/model"
	"HoldCrypt/internal/portfolio"
	"HoldCrypt/internal/pricing"
)

// Ledger creates users and appends transactions.
type Ledger interface {
	PutUser(ctx context.Context, p model.UserProfile) (bool, error)
	Append(ctx context.Context, rec model.TransactionRecord) (model.TransactionRecord, error)
}

// Holdings values users' ledgers.
type Holdings interface {
	ComputeUser(ctx context.Context, username string) (portfolio.UserHoldings, error)
	ComputeAllHoldings(ctx context.Context) ([]portfolio.UserHoldings, error)
}

// Refresher refreshes snapshot prices.
type Refresher interface {
	RefreshBatch(ctx context.Context, coins []model.CoinRef) []pricing.RefreshResult
}

// Prices reads the snapshot.
type Prices interface {
	All(ctx context.Context) (model.PriceSnapshot, map[string]error, error)
}

// Handlers implements the HTTP endpoints.
type Handlers struct {
	ledger    Ledger
	holdings  Holdings
	refresher Refresher
	prices    Prices
	now       func() time.Time
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(l Ledger, h Holdings, r Refresher, p Prices) *Handlers {
	return &Handlers{ledger: l, holdings: h, refresher: r, prices: p, now: time.Now}
}

var errEmptyBody = errors.New("no body provided")

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

func badBody(w http.ResponseWriter, err error) {
	if errors.Is(err, errEmptyBody) {
		writeBadRequest(w, err.Error(), nil)
		return
	}
	writeBadRequest(w, "failed to parse json body", err)
}

type putUserRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PutUser handles PUT /users.
func (h *Handlers) PutUser(w http.ResponseWriter, r *http.Request) {
	var req putUserRequest
	if err := decodeBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeBadRequest(w, "username is required", nil)
		return
	}

	created, err := h.ledger.PutUser(r.Context(), model.UserProfile{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if errors.Is(err, ledger.ErrInvalidInput) {
		writeBadRequest(w, "invalid user", err)
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("username", req.Username).Msg("put user")
		writeInternal(w, "failed to add user", err)
		return
	}
	writeOK(w, "successfully added user", map[string]bool{"created": created})
}

type postTransactionRequest struct {
	Username string   `json:"username"`
	Coin     string   `json:"coin"`
	Amount   *float64 `json:"amount"`
	Price    *float64 `json:"price"`
}

// PostTransaction handles POST /transactions.
func (h *Handlers) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var req postTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	var missing []string
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(req.Coin) == "" {
		missing = append(missing, "coin")
	}
	if req.Amount == nil {
		missing = append(missing, "amount")
	}
	if req.Price == nil {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		writeBadRequest(w, "missing required fields: "+strings.Join(missing, ", "), nil)
		return
	}

	rec, err := h.ledger.Append(r.Context(), model.TransactionRecord{
		Username: req.Username,
		Coin:     req.Coin,
		Amount:   *req.Amount,
		Price:    *req.Price,
	})
	switch {
	case errors.Is(err, ledger.ErrOwnerNotFound):
		writeBadRequest(w, "user does not exist", err)
	case errors.Is(err, ledger.ErrInvalidInput):
		writeBadRequest(w, "invalid transaction", err)
	case err != nil:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("username", req.Username).Msg("append transaction")
		writeInternal(w, "failed to add transaction", err)
	default:
		writeOK(w, "successfully added transaction", rec)
	}
}

type coinView struct {
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	Value  float64 `json:"value"`
}

type userView struct {
	Username  string     `json:"username"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Coins     []coinView `json:"coins"`
	Error     string     `json:"error,omitempty"`
}

func newUserView(uh portfolio.UserHoldings) userView {
	v := userView{
		Username:  uh.Profile.Username,
		FirstName: uh.Profile.FirstName,
		LastName:  uh.Profile.LastName,
		Coins:     make([]coinView, 0, len(uh.Holdings)),
	}
	for _, hd := range uh.Holdings {
		v.Coins = append(v.Coins, coinView{
			Name: hd.Name, Symbol: hd.Symbol, Price: hd.Price, Amount: hd.Amount, Value: hd.Value(),
		})
	}
	if uh.Err != nil {
		v.Error = uh.Err.Error()
	}
	return v
}

// ListUsers handles GET /users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	all, err := h.holdings.ComputeAllHoldings(r.Context())
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("compute all holdings")
		writeInternal(w, "failed to read users", err)
		return
	}

	views := make([]userView, 0, len(all))
	var failed []string
	for _, uh := range all {
		views = append(views, newUserView(uh))
		if uh.Err != nil {
			failed = append(failed, uh.Profile.Username)
		}
	}
	resp := Response{Message: fmt.Sprintf("%d users", len(views)), Body: views}
	if len(failed) > 0 {
		resp.Error = fmt.Sprintf("failed to read %d users: %s", len(failed), strings.Join(failed, ", "))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetUser handles GET /users/{username}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	uh, err := h.holdings.ComputeUser(r.Context(), username)
	if errors.Is(err, portfolio.ErrUserNotFound) {
		writeBadRequest(w, "user does not exist", err)
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("username", username).Msg("compute holdings")
		writeInternal(w, "failed to read user", err)
		return
	}
	writeOK(w, "user", newUserView(uh))
}

type coinsPutRequest struct {
	Coins []model.CoinRef `json:"coins"`
}

type priceView struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PutCoins handles PUT /coins.
func (h *Handlers) PutCoins(w http.ResponseWriter, r *http.Request) {
	var req coinsPutRequest
	if err := decodeBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	if len(req.Coins) == 0 {
		writeBadRequest(w, "no coins provided", nil)
		return
	}
	for i, c := range req.Coins {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Symbol) == "" {
			writeBadRequest(w, fmt.Sprintf("coins[%d]: name and symbol are required", i), nil)
			return
		}
	}

	results := h.refresher.RefreshBatch(r.Context(), req.Coins)
	body := make(map[string]priceView, len(results))
	for _, res := range results {
		if res.Err == nil {
			body[res.Coin.Symbol] = priceView{Name: res.Entry.Name, Price: res.Entry.Price}
		}
	}

	failed := pricing.Failed(results)
	if len(failed) == 0 {
		writeOK(w, "successfully refreshed prices", body)
		return
	}
	msgs := make([]string, 0, len(failed))
	for _, f := range failed {
		msgs = append(msgs, f.Err.Error())
	}
	WriteJSON(w, http.StatusInternalServerError, Response{
		Message: "failed to refresh prices",
		Error:   strings.Join(msgs, "; "),
		Body:    body,
	})
}

// ListCoins handles GET /coins.
func (h *Handlers) ListCoins(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	snap, broken, err := h.prices.All(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("read prices")
		writeInternal(w, "failed to read prices", err)
		return
	}
	body := make(map[string]priceView, len(snap))
	for sym, e := range snap {
		body[sym] = priceView{Name: e.Name, Price: e.Price}
	}
	resp := Response{Message: "prices", Body: body}
	if len(broken) > 0 {
		symbols := make([]string, 0, len(broken))
		for sym, cause := range broken {
			log.Warn().Str("symbol", sym).Err(cause).Msg("malformed price entry")
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		resp.Error = fmt.Sprintf("failed to read %d prices: %s", len(symbols), strings.Join(symbols, ", "))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, "healthy", map[string]string{"time": h.now().UTC().Format(time.RFC3339)})
}
