package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/app/services/explorer/handlers"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type explorer struct {
	evts *events.Events
	mux  http.Handler
	a    string
	b    string
}

func newExplorer(t *testing.T) explorer {
	t.Helper()

	evts := events.New()

	cfg := state.Config{
		Ledger:     memory.New(),
		Spent:      memory.New(),
		Wallets:    memory.New(),
		Params:     &chaincfg.RegressionNetParams,
		Difficulty: 1,
		EvHandler:  evts.Sendf,
	}

	// The wallet is created before the chain so the genesis reward has an owner.
	a, err := wallet.NewWallets(cfg.Wallets, cfg.Params).Create()
	require.NoError(t, err)

	st, err := state.Create(context.Background(), cfg, a, "explorer genesis")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	b, err := st.CreateWallet()
	require.NoError(t, err)

	mux := handlers.PublicMux(handlers.MuxConfig{
		Log:   zap.NewNop().Sugar(),
		State: st,
		Evts:  evts,
	})

	return explorer{
		evts: evts,
		mux:  mux,
		a:    a,
		b:    b,
	}
}

func do(t *testing.T, mux http.Handler, method string, path string, body string, v any) int {
	t.Helper()

	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if v != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
	}

	return w.Code
}

// =============================================================================

type balanceResp struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	UTXO    []struct {
		Value   uint64 `json:"value"`
		Address string `json:"address"`
	} `json:"utxo"`
}

type blockResp struct {
	Hash         string `json:"hash"`
	Height       uint64 `json:"height"`
	MerkleRoot   string `json:"merkle_root"`
	PoW          bool   `json:"pow"`
	Transactions []struct {
		ID       string `json:"id"`
		Coinbase bool   `json:"coinbase"`
	} `json:"transactions"`
}

func TestExplorer(t *testing.T) {
	ex := newExplorer(t)

	var bal balanceResp
	require.Equal(t, http.StatusOK, do(t, ex.mux, http.MethodGet, "/v1/balance/"+ex.a, "", &bal))
	require.Equal(t, uint64(100), bal.Balance)
	require.Len(t, bal.UTXO, 1)
	require.Equal(t, ex.a, bal.UTXO[0].Address)

	var addresses []string
	require.Equal(t, http.StatusOK, do(t, ex.mux, http.MethodGet, "/v1/addresses", "", &addresses))
	require.ElementsMatch(t, []string{ex.a, ex.b}, addresses)

	var sent struct {
		TxID  string    `json:"tx_id"`
		Block blockResp `json:"block"`
	}
	body := `{"from":"` + ex.a + `","to":"` + ex.b + `","amount":25}`
	require.Equal(t, http.StatusCreated, do(t, ex.mux, http.MethodPost, "/v1/tx/send", body, &sent))
	require.Equal(t, uint64(1), sent.Block.Height)
	require.True(t, sent.Block.PoW)

	require.Equal(t, http.StatusOK, do(t, ex.mux, http.MethodGet, "/v1/balance/"+ex.b, "", &bal))
	require.Equal(t, uint64(25), bal.Balance)

	var blocks []blockResp
	require.Equal(t, http.StatusOK, do(t, ex.mux, http.MethodGet, "/v1/blocks", "", &blocks))
	require.Len(t, blocks, 2)
	require.Equal(t, sent.Block.Hash, blocks[0].Hash)
	require.True(t, blocks[1].Transactions[0].Coinbase)

	var blk blockResp
	require.Equal(t, http.StatusOK, do(t, ex.mux, http.MethodGet, "/v1/blocks/"+blocks[1].Hash, "", &blk))
	require.Equal(t, uint64(0), blk.Height)

	var tx struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, do(t, ex.mux, http.MethodGet, "/v1/tx/"+sent.TxID, "", &tx))
	require.Equal(t, sent.TxID, tx.ID)

	var txp struct {
		BlockHash  string `json:"block_hash"`
		MerkleRoot string `json:"merkle_root"`
	}
	require.Equal(t, http.StatusOK, do(t, ex.mux, http.MethodGet, "/v1/tx/"+sent.TxID+"/proof", "", &txp))
	require.Equal(t, sent.Block.Hash, txp.BlockHash)
	require.Equal(t, sent.Block.MerkleRoot, txp.MerkleRoot)
}

func TestExplorerErrors(t *testing.T) {
	ex := newExplorer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "block", method: http.MethodGet, path: "/v1/blocks/00ff", status: http.StatusNotFound},
		{name: "tx", method: http.MethodGet, path: "/v1/tx/00ff", status: http.StatusNotFound},
		{name: "proof", method: http.MethodGet, path: "/v1/tx/00ff/proof", status: http.StatusNotFound},
		{name: "address", method: http.MethodGet, path: "/v1/balance/nope", status: http.StatusBadRequest},
		{name: "payload", method: http.MethodPost, path: "/v1/tx/send", body: `{"from":`, status: http.StatusBadRequest},
		{name: "zero", method: http.MethodPost, path: "/v1/tx/send", body: `{"from":"` + ex.a + `","to":"` + ex.b + `","amount":0}`, status: http.StatusBadRequest},
		{name: "funds", method: http.MethodPost, path: "/v1/tx/send", body: `{"from":"` + ex.a + `","to":"` + ex.b + `","amount":1000}`, status: http.StatusBadRequest},
		{name: "sender", method: http.MethodPost, path: "/v1/tx/send", body: `{"from":"` + ex.b + `x","to":"` + ex.a + `","amount":1}`, status: http.StatusBadRequest},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			require.Equal(t, tst.status, do(t, ex.mux, tst.method, tst.path, tst.body, nil))
		})
	}
}

func TestEvents(t *testing.T) {
	ex := newExplorer(t)

	srv := httptest.NewServer(ex.mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool { return ex.evts.Count() == 1 }, time.Second, 10*time.Millisecond)

	ex.evts.Send("block mined")

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "block mined", string(msg))
}
