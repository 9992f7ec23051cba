package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloudx-io/chainauction/auction"
	"github.com/cloudx-io/chainauction/core"
	"github.com/cloudx-io/chainauction/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *auction.ManualClock) {
	t.Helper()
	clock := &auction.ManualClock{Timestamp: 1_000_000}
	svc := auction.NewService(store.NewMemoryStore(), clock, zaptest.NewLogger(t))
	ts := httptest.NewServer(New(svc, zaptest.NewLogger(t)).Router())
	t.Cleanup(ts.Close)
	return ts, clock
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestServer_AuctionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := core.AddressFromSeed("alice").String()
	bob := core.AddressFromSeed("bob").String()

	// Create an auction with a 10 minute gap window.
	resp, created := doJSON(t, http.MethodPost, ts.URL+"/v1/auctions", map[string]any{
		"gap_time": 600,
		"max_bids": 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	auctionID := created["auction"].(string)
	assert.Equal(t, "open", created["state"])

	// Fund both bidders.
	resp, account := doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/"+alice+"/deposit", map[string]any{"amount": "2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", account["balance"])
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/"+bob+"/deposit", map[string]any{"amount": "2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Bid below bob's later bid.
	resp, bid := doJSON(t, http.MethodPost, ts.URL+"/v1/auctions/"+auctionID+"/bids", map[string]any{
		"bidder": alice,
		"amount": "0.5",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "0.5", bid["amount"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/auctions/"+auctionID+"/bids", map[string]any{
		"bidder": bob,
		"amount": "1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Auction view shows bob winning.
	resp, info := doJSON(t, http.MethodGet, ts.URL+"/v1/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	winner := info["winner"].(map[string]any)
	assert.Equal(t, "1", winner["amount"])
	assert.Equal(t, float64(2), info["bid_count"])

	// Alice's audit view: funds escrowed even though she is outbid.
	resp, bidder := doJSON(t, http.MethodGet, ts.URL+"/v1/auctions/"+auctionID+"/bidders/"+alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.5", bidder["escrowed"])

	// Registry lists the auction.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/auctions", nil)
	require.NoError(t, err)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	var entries []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, auctionID, entries[0]["auction"])
}

func TestServer_ErrorMapping(t *testing.T) {
	ts, clock := newTestServer(t)
	alice := core.AddressFromSeed("alice").String()

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/v1/auctions", map[string]any{"gap_time": 600})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	auctionID := created["auction"].(string)

	// Unfunded bidder.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/auctions/"+auctionID+"/bids", map[string]any{
		"bidder": alice,
		"amount": "1",
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Contains(t, body["error"], "insufficient funds")

	// Malformed bidder address.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/auctions/"+auctionID+"/bids", map[string]any{
		"bidder": "not-hex",
		"amount": "1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown auction.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/auctions/"+core.AddressFromSeed("missing").String(), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Closed auction.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/"+alice+"/deposit", map[string]any{"amount": "5"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clock.Advance(601)
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/auctions/"+auctionID+"/bids", map[string]any{
		"bidder": alice,
		"amount": "1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "not accepting bids")
}

func TestHub_BroadcastAndDrop(t *testing.T) {
	h := newHub[int]()
	sub := h.Subscribe(2)

	h.Broadcast(1)
	h.Broadcast(2)
	h.Broadcast(3) // buffer full: dropped, not blocking

	assert.Equal(t, 1, <-sub.ch)
	assert.Equal(t, 2, <-sub.ch)
	select {
	case v := <-sub.ch:
		t.Fatalf("unexpected event %d", v)
	default:
	}

	h.Unsubscribe(sub)
	_, ok := <-sub.ch
	assert.False(t, ok, "channel closed after unsubscribe")
}
