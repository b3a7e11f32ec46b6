package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/p2ptracker/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

func testSource(t *testing.T, handler http.HandlerFunc, pageSize int) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Options{BaseURL: srv.URL, Key: "k", Secret: "s"})
	return NewSource(client, norm, pageSize)
}

func orderJSON(id string, side int) map[string]any {
	return map[string]any{
		"id":            id,
		"side":          side, // número, no string: el decoder lo tolera
		"tokenId":       "USDT",
		"currencyId":    "NGN",
		"amount":        "150000",
		"price":         "1500",
		"tokenQuantity": "100",
		"status":        50,
		"createDate":    "1718700000000",
		"updateDate":    "1718700300000",
	}
}

func writePage(w http.ResponseWriter, orders ...map[string]any) {
	json.NewEncoder(w).Encode(map[string]any{
		"retCode": 0,
		"result":  map[string]any{"items": orders},
	})
}

func TestFetchCompleted_StopsOnShortPage(t *testing.T) {
	var pages []int
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		pages = append(pages, req.Page)

		switch req.Page {
		case 1:
			writePage(w, orderJSON("a1", 0), orderJSON("a2", 1))
		case 2:
			writePage(w, orderJSON("a3", 0)) // página corta: fin
		default:
			t.Fatalf("unexpected page %d", req.Page)
		}
	}, 2)

	trades, err := src.FetchCompleted(context.Background(), 0, 9_999_999_999_999)
	require.NoError(t, err)

	assert.Len(t, trades, 3)
	assert.Equal(t, []int{1, 2}, pages)
}

func TestFetchCompleted_StopsAfterConsecutiveEmptyPages(t *testing.T) {
	var hits int
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		writePage(w)
	}, 2)

	trades, err := src.FetchCompleted(context.Background(), 0, 9_999_999_999_999)
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.Equal(t, 3, hits)
}

func TestFetchCompleted_DeduplicatesWithinRun(t *testing.T) {
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Page == 1 {
			writePage(w, orderJSON("dup", 0), orderJSON("dup", 0))
			return
		}
		writePage(w)
	}, 2)

	trades, err := src.FetchCompleted(context.Background(), 0, 9_999_999_999_999)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, "dup", trades[0].ID)
}

func TestFetchCompleted_PartialProgressOnFailure(t *testing.T) {
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Page {
		case 1:
			writePage(w, orderJSON("b1", 0), orderJSON("b2", 1))
		default:
			// 4xx corta sin retries: la pasada devuelve lo acumulado
			http.Error(w, "bad request", http.StatusBadRequest)
		}
	}, 2)

	trades, err := src.FetchCompleted(context.Background(), 0, 9_999_999_999_999)

	require.ErrorIs(t, err, ports.ErrIncompleteSync)
	assert.Len(t, trades, 2)
}

func TestFetchCompleted_APIErrorCodeTreatedAsEmpty(t *testing.T) {
	var hits int
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(map[string]any{
			"retCode": 10001,
			"retMsg":  "params error",
			"result":  map[string]any{"items": []any{orderJSON("x", 0)}},
		})
	}, 2)

	trades, err := src.FetchCompleted(context.Background(), 0, 9_999_999_999_999)
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.Equal(t, 3, hits)
}

func TestFetchCompleted_ListFieldFallback(t *testing.T) {
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Page == 1 {
			json.NewEncoder(w).Encode(map[string]any{
				"retCode": 0,
				"result":  map[string]any{"list": []any{orderJSON("l1", 1)}},
			})
			return
		}
		writePage(w)
	}, 2)

	trades, err := src.FetchCompleted(context.Background(), 0, 9_999_999_999_999)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, "l1", trades[0].ID)
}

func TestClientSign(t *testing.T) {
	c := NewClient(Options{Key: "key", Secret: "secret", RecvWindowMs: 5000})

	// Firma determinista: HMAC-SHA256(secret, ts + key + recvWindow + body)
	got := c.sign(`{"page":1}`, "1718700000000")
	assert.Len(t, got, 64)
	assert.Equal(t, got, c.sign(`{"page":1}`, "1718700000000"))
	assert.NotEqual(t, got, c.sign(`{"page":2}`, "1718700000000"))
}

func TestClientSendsSignedHeaders(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Key: "api-key", Secret: "s", RecvWindowMs: 7000})
	var out map[string]any
	require.NoError(t, c.post(context.Background(), "/x", map[string]any{}, &out))

	assert.Equal(t, "api-key", gotHeaders.Get("X-BAPI-API-KEY"))
	assert.Equal(t, "7000", gotHeaders.Get("X-BAPI-RECV-WINDOW"))
	assert.NotEmpty(t, gotHeaders.Get("X-BAPI-TIMESTAMP"))
	assert.NotEmpty(t, gotHeaders.Get("X-BAPI-SIGN"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
}
