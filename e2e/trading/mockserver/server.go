// Package mockserver provides a mock Binance REST server for end-to-end tests.
// It serves scripted klines and fills market orders at the close of the
// newest served bar.
package mockserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// DefaultCommission is the taker commission charged on every fill.
const DefaultCommission = 0.001

// Order is a market order the server accepted.
type Order struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          string
	Quantity      float64
	Price         float64
	Commission    float64
}

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// InitialBalances maps asset to free balance.
	InitialBalances map[string]float64
	// Interval is the kline interval the bars are spaced by.
	Interval time.Duration
}

// MockBinanceServer is an in-process Binance spot API.
type MockBinanceServer struct {
	mu         sync.RWMutex
	server     *httptest.Server
	interval   time.Duration
	bars       map[string][]types.Bar
	balances   map[string]float64
	orders     []Order
	orderIDSeq int64
	// rejectOrders makes every order return an exchange error.
	rejectOrders bool
}

// NewMockBinanceServer starts a server on a random local port.
func NewMockBinanceServer(config ServerConfig) *MockBinanceServer {
	s := &MockBinanceServer{
		interval:   config.Interval,
		bars:       make(map[string][]types.Bar),
		balances:   make(map[string]float64),
		orderIDSeq: 1000,
	}

	if s.interval == 0 {
		s.interval = time.Hour
	}

	for asset, amount := range config.InitialBalances {
		s.balances[asset] = amount
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/v3/klines", s.handleKlines).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/account", s.handleAccount).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/order", s.handleCreateOrder).Methods(http.MethodPost)

	s.server = httptest.NewServer(router)

	return s
}

// BaseURL returns the base URL for the server.
func (s *MockBinanceServer) BaseURL() string {
	return s.server.URL
}

// Close stops the server.
func (s *MockBinanceServer) Close() {
	s.server.Close()
}

// SetBars replaces the klines served for symbol.
func (s *MockBinanceServer) SetBars(symbol string, bars []types.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bars[symbol] = append([]types.Bar(nil), bars...)
}

// SetRejectOrders toggles order rejection.
func (s *MockBinanceServer) SetRejectOrders(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectOrders = reject
}

// Balance returns the free balance of asset.
func (s *MockBinanceServer) Balance(asset string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[asset]
}

// Orders returns the accepted orders in arrival order.
func (s *MockBinanceServer) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Order(nil), s.orders...)
}

// handleKlines handles GET /api/v3/klines
func (s *MockBinanceServer) handleKlines(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	symbol := query.Get("symbol")

	if symbol == "" || query.Get("interval") == "" {
		writeError(w, -1102, "Mandatory parameter was not sent")

		return
	}

	s.mu.RLock()
	bars := s.bars[symbol]
	s.mu.RUnlock()

	start := millisParam(query.Get("startTime"), 0)
	end := millisParam(query.Get("endTime"), int64(^uint64(0)>>1))

	selected := make([]types.Bar, 0, len(bars))

	for _, bar := range bars {
		openTime := bar.Time.UnixMilli()
		if openTime >= start && openTime <= end {
			selected = append(selected, bar)
		}
	}

	limit := int(millisParam(query.Get("limit"), 500))
	if len(selected) > limit {
		// without a start time Binance returns the newest klines
		if query.Get("startTime") == "" {
			selected = selected[len(selected)-limit:]
		} else {
			selected = selected[:limit]
		}
	}

	klines := make([][]any, 0, len(selected))

	for _, bar := range selected {
		klines = append(klines, []any{
			bar.Time.UnixMilli(),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.Volume),
			bar.Time.Add(s.interval).UnixMilli() - 1,
			"0",
			0,
			"0",
			"0",
			"0",
		})
	}

	writeJSON(w, klines)
}

// handleAccount handles GET /api/v3/account
func (s *MockBinanceServer) handleAccount(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := make([]map[string]string, 0, len(s.balances))
	for asset, free := range s.balances {
		balances = append(balances, map[string]string{
			"asset":  asset,
			"free":   formatFloat(free),
			"locked": "0",
		})
	}

	writeJSON(w, map[string]any{
		"makerCommission": 10,
		"takerCommission": 10,
		"canTrade":        true,
		"accountType":     "SPOT",
		"updateTime":      time.Now().UnixMilli(),
		"balances":        balances,
	})
}

// handleCreateOrder handles POST /api/v3/order. Only MARKET orders are supported.
func (s *MockBinanceServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, -1102, "Failed to parse form")

		return
	}

	symbol := r.FormValue("symbol")
	side := r.FormValue("side")
	clientOrderID := r.FormValue("newClientOrderId")

	quantity, err := strconv.ParseFloat(r.FormValue("quantity"), 64)
	if err != nil || quantity <= 0 {
		writeError(w, -1013, "Invalid quantity")

		return
	}

	if r.FormValue("type") != "MARKET" {
		writeError(w, -1116, "Invalid orderType")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectOrders {
		writeError(w, -2010, "Account has insufficient balance for requested action")

		return
	}

	bars := s.bars[symbol]
	if len(bars) == 0 {
		writeError(w, -1121, "Invalid symbol")

		return
	}

	price := bars[len(bars)-1].Close
	cost := price * quantity
	commission := cost * DefaultCommission
	base, quote := splitSymbol(symbol)

	switch side {
	case "BUY":
		if s.balances[quote] < cost+commission {
			writeError(w, -2010, "Account has insufficient balance for requested action")

			return
		}

		s.balances[quote] -= cost + commission
		s.balances[base] += quantity
	case "SELL":
		if s.balances[base] < quantity {
			writeError(w, -2010, "Account has insufficient balance for requested action")

			return
		}

		s.balances[base] -= quantity
		s.balances[quote] += cost - commission
	default:
		writeError(w, -1117, "Invalid side")

		return
	}

	s.orderIDSeq++
	s.orders = append(s.orders, Order{
		OrderID:       s.orderIDSeq,
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Side:          side,
		Quantity:      quantity,
		Price:         price,
		Commission:    commission,
	})

	writeJSON(w, map[string]any{
		"symbol":              symbol,
		"orderId":             s.orderIDSeq,
		"orderListId":         -1,
		"clientOrderId":       clientOrderID,
		"transactTime":        time.Now().UnixMilli(),
		"price":               "0.00000000",
		"origQty":             formatFloat(quantity),
		"executedQty":         formatFloat(quantity),
		"cummulativeQuoteQty": formatFloat(cost),
		"status":              "FILLED",
		"timeInForce":         "GTC",
		"type":                "MARKET",
		"side":                side,
		"fills": []map[string]any{
			{
				"price":           formatFloat(price),
				"qty":             formatFloat(quantity),
				"commission":      formatFloat(commission),
				"commissionAsset": quote,
				"tradeId":         s.orderIDSeq,
			},
		},
	})
}

func splitSymbol(symbol string) (base string, quote string) {
	for _, q := range []string{"USDT", "BUSD", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return strings.TrimSuffix(symbol, q), q
		}
	}

	return symbol[:len(symbol)/2], symbol[len(symbol)/2:]
}

func millisParam(value string, fallback int64) int64 {
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}

	return parsed
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "msg": msg})
}
