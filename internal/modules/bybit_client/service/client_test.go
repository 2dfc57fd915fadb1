package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirror_bot/internal/models"
	"mirror_bot/internal/modules/config"
)

const (
	testKey    = "key-123"
	testSecret = "secret-456"
)

type captured struct {
	method string
	path   string
	query  string
	body   string
	header http.Header
}

func newTestClient(t *testing.T, handler func(c captured) string) (*Client, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c := captured{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body), header: r.Header.Clone()}
		calls = append(calls, c)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handler(c))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Exchange.BaseURL = srv.URL
	cfg.Exchange.APIKey = testKey
	cfg.Exchange.APISecret = testSecret
	cfg.Exchange.RateLimitRPS = 1000

	c := NewClient(&cfg)
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return c, &calls
}

func expectedSign(payload string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("1700000000123" + testKey + "5000" + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestGetLivePosition_SignedGet(t *testing.T) {
	c, calls := newTestClient(t, func(captured) string {
		return `{"retCode":0,"retMsg":"OK","result":{"list":[
			{"symbol":"BTCUSDT","side":"Sell","size":"0.25","avgPrice":"61000.5","takeProfit":"55000","stopLoss":"","positionIdx":0}
		]}}`
	})

	pos, err := c.GetLivePosition(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0.25, pos.Quantity)
	assert.Equal(t, models.SideShort, pos.Side)
	require.NotNil(t, pos.AvgEntryPrice)
	assert.Equal(t, 61000.5, *pos.AvgEntryPrice)
	assert.Equal(t, 55000.0, pos.TakeProfit)
	assert.Equal(t, 0.0, pos.StopLoss)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/v5/position/list", call.path)
	assert.Equal(t, "category=linear&symbol=BTCUSDT", call.query)
	assert.Equal(t, testKey, call.header.Get("X-BAPI-API-KEY"))
	assert.Equal(t, "1700000000123", call.header.Get("X-BAPI-TIMESTAMP"))
	assert.Equal(t, "5000", call.header.Get("X-BAPI-RECV-WINDOW"))
	assert.Equal(t, "2", call.header.Get("X-BAPI-SIGN-TYPE"))
	assert.Equal(t, expectedSign(call.query), call.header.Get("X-BAPI-SIGN"))
}

func TestGetLivePosition_Flat(t *testing.T) {
	c, _ := newTestClient(t, func(captured) string {
		return `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"BTCUSDT","side":"","size":"0","avgPrice":"0"}]}}`
	})

	pos, err := c.GetLivePosition(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, pos.IsFlat())
	assert.Nil(t, pos.AvgEntryPrice)
}

func TestGetLastPrice_Public(t *testing.T) {
	c, calls := newTestClient(t, func(captured) string {
		return `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"ETHUSDT","lastPrice":"2450.15"}]}}`
	})

	last, err := c.GetLastPrice(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 2450.15, last)
	assert.Equal(t, "/v5/market/tickers", (*calls)[0].path)
	assert.Empty(t, (*calls)[0].header.Get("X-BAPI-SIGN"))
}

func TestGetLastPrice_Empty(t *testing.T) {
	c, _ := newTestClient(t, func(captured) string {
		return `{"retCode":0,"retMsg":"OK","result":{"list":[]}}`
	})

	_, err := c.GetLastPrice(context.Background(), "ETHUSDT")
	assert.Error(t, err)
}

func TestRequestsAreSerialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"ETHUSDT","lastPrice":"1"}]}}`)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Exchange.BaseURL = srv.URL
	cfg.Exchange.RateLimitRPS = 1000
	c := NewClient(&cfg)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetLastPrice(context.Background(), "ETHUSDT")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestParseFloat_NonFiniteIsZero(t *testing.T) {
	assert.Equal(t, 0.0, parseFloat("NaN"))
	assert.Equal(t, 0.0, parseFloat("Inf"))
	assert.Equal(t, 0.0, parseFloat(""))
	assert.Equal(t, 0.25, parseFloat(" 0.25 "))
}

func TestGetLotConstraint(t *testing.T) {
	c, calls := newTestClient(t, func(captured) string {
		return `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"ETHUSDT","lotSizeFilter":{"minOrderQty":"0.01","qtyStep":"0.01"}}]}}`
	})

	lot, err := c.GetLotConstraint(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, models.LotConstraint{MinOrderQty: 0.01, QtyStep: 0.01}, lot)
	assert.Equal(t, "/v5/market/instruments-info", (*calls)[0].path)
}

func TestSubmitReduceOnly_Body(t *testing.T) {
	c, calls := newTestClient(t, func(captured) string {
		return `{"retCode":0,"retMsg":"OK","result":{"orderId":"1","orderLinkId":"CLOSE_ETHUSDT_120000_abcd"}}`
	})

	err := c.SubmitReduceOnly(context.Background(), "ETHUSDT", models.SideLong, 1.5, "CLOSE_ETHUSDT_120000_abcd")
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/v5/order/create", call.path)
	assert.Equal(t, expectedSign(call.body), call.header.Get("X-BAPI-SIGN"))

	var body map[string]any
	require.NoError(t, sonic.UnmarshalString(call.body, &body))
	assert.Equal(t, "linear", body["category"])
	assert.Equal(t, "Buy", body["side"])
	assert.Equal(t, "Market", body["orderType"])
	assert.Equal(t, "1.5", body["qty"])
	assert.Equal(t, "IOC", body["timeInForce"])
	assert.Equal(t, true, body["reduceOnly"])
	assert.Equal(t, "CLOSE_ETHUSDT_120000_abcd", body["orderLinkId"])
}

func TestSubmitOpen_Rejected(t *testing.T) {
	c, _ := newTestClient(t, func(captured) string {
		return `{"retCode":110007,"retMsg":"ab not enough for new order","result":{}}`
	})

	err := c.SubmitOpen(context.Background(), "ETHUSDT", models.SideShort, 1, "OPEN_x")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 110007, apiErr.RetCode)
	assert.Equal(t, "ab not enough for new order", apiErr.RetMsg)
}

func TestSetLeverage_NotModifiedIsSuccess(t *testing.T) {
	c, calls := newTestClient(t, func(captured) string {
		return `{"retCode":110043,"retMsg":"leverage not modified","result":{}}`
	})

	require.NoError(t, c.SetLeverage(context.Background(), "BTCUSDT", 10))

	var body map[string]any
	require.NoError(t, sonic.UnmarshalString((*calls)[0].body, &body))
	assert.Equal(t, "10", body["buyLeverage"])
	assert.Equal(t, "10", body["sellLeverage"])
}

func TestSetLeverage_Error(t *testing.T) {
	c, _ := newTestClient(t, func(captured) string {
		return `{"retCode":10001,"retMsg":"params error","result":{}}`
	})

	assert.Error(t, c.SetLeverage(context.Background(), "BTCUSDT", 10))
}

func TestSetProtectiveOrders(t *testing.T) {
	c, calls := newTestClient(t, func(captured) string {
		return `{"retCode":0,"retMsg":"OK","result":{}}`
	})
	sl := 1800.5

	require.NoError(t, c.SetProtectiveOrders(context.Background(), "ETHUSDT", nil, &sl))
	require.NoError(t, c.SetProtectiveOrders(context.Background(), "ETHUSDT", nil, nil))
	require.Len(t, *calls, 1)

	var body map[string]any
	require.NoError(t, sonic.UnmarshalString((*calls)[0].body, &body))
	assert.Equal(t, "/v5/position/trading-stop", (*calls)[0].path)
	assert.Equal(t, "Full", body["tpslMode"])
	assert.Equal(t, "1800.5", body["stopLoss"])
	assert.NotContains(t, body, "takeProfit")
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Exchange.BaseURL = srv.URL
	_, err := NewClient(&cfg).GetLastPrice(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
}

func TestIsNotModified(t *testing.T) {
	assert.True(t, IsNotModified(&APIError{RetCode: 34040, RetMsg: "not modified"}))
	assert.True(t, IsNotModified(&APIError{RetCode: 1, RetMsg: "Leverage Not Modified"}))
	assert.False(t, IsNotModified(&APIError{RetCode: 10001, RetMsg: "params error"}))
	assert.False(t, IsNotModified(errors.New("not modified")))
	assert.False(t, IsNotModified(nil))
}
