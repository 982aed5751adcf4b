// Package publicgrp maintains the group of handlers for public access to
// the ledger.
package publicgrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/validate"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// The upgrade already wrote the response.
	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// Blocks returns every block from the tip of the chain back to genesis.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	dbBlocks, err := h.State.Blocks()
	if err != nil {
		return toTrusted(err)
	}

	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blocks[i] = toBlock(h.State, dbBlock)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Block returns the block with the specified hash.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	dbBlock, err := h.State.Block(hash)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toBlock(h.State, dbBlock), http.StatusOK)
}

// Transaction returns the transaction with the specified id.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	dbTx, err := h.State.Transaction(id)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toTx(h.State, dbTx), http.StatusOK)
}

// TransactionProof returns the merkle proof that a block holds the transaction.
func (h Handlers) TransactionProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	txp, err := h.State.TransactionProof(id)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, txp, http.StatusOK)
}

// Balance returns the balance and the unspent outputs of an address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	outs, err := h.State.UTXO(address)
	if err != nil {
		return toTrusted(err)
	}

	bal := balance{
		Address: address,
		UTXO:    make([]output, len(outs)),
	}
	for i, out := range outs {
		bal.Balance += out.Value
		bal.UTXO[i] = toOutput(h.State, out)
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// Addresses returns the addresses of every wallet the explorer holds.
func (h Handlers) Addresses(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addresses, err := h.State.Addresses()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, addresses, http.StatusOK)
}

// Send moves value between two wallets and mines the transfer into a block.
func (h Handlers) Send(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req SendRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	h.Log.Infow("send", "traceid", v.TraceID, "from", req.From, "to", req.To, "amount", req.Amount)

	dbBlock, err := h.State.Send(ctx, req.From, req.To, req.Amount)
	if err != nil {
		return toTrusted(err)
	}

	resp := sendResponse{
		TxID:  dbBlock.Transactions[0].ID,
		Block: toBlock(h.State, dbBlock),
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// =============================================================================

// toTrusted marks the errors caused by the request so their message is
// returned to the client.
func toTrusted(err error) error {
	switch {
	case state.IsUserError(err):
		return errs.NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, state.ErrInvalidSignature):
		return errs.NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, database.ErrKeyNotFound), errors.Is(err, database.ErrTransactionNotFound):
		return errs.NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, database.ErrUninitialized):
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}

	return err
}
