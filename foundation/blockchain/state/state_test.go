package state_test

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type stores struct {
	ledger  *memory.Memory
	spent   *memory.Memory
	wallets *memory.Memory
}

func (st stores) config() state.Config {
	return state.Config{
		Ledger:     st.ledger.Reopen(),
		Spent:      st.spent.Reopen(),
		Wallets:    st.wallets.Reopen(),
		Params:     &chaincfg.RegressionNetParams,
		Difficulty: 1,
	}
}

func addWallet(t *testing.T, st stores, hexKey string) string {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	address, err := wallet.NewWallets(st.wallets, &chaincfg.RegressionNetParams).Add(pk)
	if err != nil {
		t.Fatalf("Should be able to add the wallet: %s", err)
	}

	return address
}

func balance(t *testing.T, s *state.State, address string) uint64 {
	t.Helper()

	bal, err := s.Balance(address)
	if err != nil {
		t.Fatalf("Should be able to get the balance of %s: %s", address, err)
	}

	return bal
}

// =============================================================================

func TestSend(t *testing.T) {
	st := stores{
		ledger:  memory.New(),
		spent:   memory.New(),
		wallets: memory.New(),
	}

	a := addWallet(t, st, "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	b := addWallet(t, st, "aed31b6b5a1ea9d3dcbb6c2e5f1a42e0b1d4b1a8e5b3c2d8c0f1e2d3c4b5a697")

	var events []string
	cfg := st.config()
	cfg.EvHandler = func(v string, args ...any) {
		events = append(events, v)
	}

	s, err := state.Create(context.Background(), cfg, a, "")
	if err != nil {
		t.Fatalf("Should be able to create the blockchain: %s", err)
	}

	t.Log("Given the need to move value between wallets.")
	{
		t.Logf("\tTest 0:\tWhen the chain only holds the genesis block.")
		{
			if bal := balance(t, s, a); bal != 100 {
				t.Fatalf("\t%s\tTest 0:\tShould have the genesis reward for A: got %d", failed, bal)
			}
			t.Logf("\t%s\tTest 0:\tShould have the genesis reward for A.", success)

			if len(events) == 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have received mining events.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have received mining events.", success)
		}

		t.Logf("\tTest 1:\tWhen sending 40 from A to B.")
		{
			block, err := s.Send(context.Background(), a, b, 40)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to send: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to send.", success)

			if block.Height != 1 || len(block.Transactions) != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould mine a block at height 1 with the transfer.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould mine a block at height 1 with the transfer.", success)

			utxos, err := s.UTXO(a)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to get the utxos: %s", failed, err)
			}

			if len(utxos) != 1 || utxos[0].Value != 60 {
				t.Fatalf("\t%s\tTest 1:\tShould have a single change output of 60 for A: %+v", failed, utxos)
			}
			t.Logf("\t%s\tTest 1:\tShould have a single change output of 60 for A.", success)

			if bal := balance(t, s, b); bal != 40 {
				t.Fatalf("\t%s\tTest 1:\tShould have 40 for B: got %d", failed, bal)
			}
			t.Logf("\t%s\tTest 1:\tShould have 40 for B.", success)

			tx, err := s.Transaction(block.Transactions[0].ID)
			if err != nil || !tx.Equals(block.Transactions[0]) {
				t.Fatalf("\t%s\tTest 1:\tShould find the transfer in the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould find the transfer in the chain.", success)

			txp, err := s.TransactionProof(tx.ID)
			if err != nil || txp.BlockHash != block.Hash {
				t.Fatalf("\t%s\tTest 1:\tShould be able to prove the transfer is in the block: %v", failed, err)
			}

			root, err := hexutil.Decode(txp.MerkleRoot)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to decode the merkle root: %s", failed, err)
			}

			leaf, err := hex.DecodeString(tx.ID)
			if err != nil || !merkle.Verify(root, leaf, txp.Proof) {
				t.Fatalf("\t%s\tTest 1:\tShould verify the merkle proof of the transfer.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould verify the merkle proof of the transfer.", success)
		}

		t.Logf("\tTest 2:\tWhen sending more than A owns.")
		{
			_, err := s.NewTransfer(a, b, 1000)

			var ie *state.InsufficientFundsError
			if !errors.As(err, &ie) {
				t.Fatalf("\t%s\tTest 2:\tShould get an insufficient funds error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get an insufficient funds error.", success)

			if ie.Available != 60 || ie.Needed != 1000 {
				t.Fatalf("\t%s\tTest 2:\tShould report 60 available: %+v", failed, ie)
			}
			t.Logf("\t%s\tTest 2:\tShould report 60 available.", success)

			if !state.IsUserError(err) {
				t.Fatalf("\t%s\tTest 2:\tShould be classified as a user error.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould be classified as a user error.", success)
		}

		t.Logf("\tTest 3:\tWhen the addresses are unknown.")
		{
			unknown, err := wallet.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to generate a wallet: %s", failed, err)
			}

			address, err := unknown.Address(&chaincfg.RegressionNetParams)
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to encode the address: %s", failed, err)
			}

			_, err = s.NewTransfer(address, b, 1)

			var se *state.UnknownSenderError
			if !errors.As(err, &se) || !errors.Is(err, wallet.ErrNotFound) {
				t.Fatalf("\t%s\tTest 3:\tShould get an unknown sender error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get an unknown sender error.", success)

			_, err = s.NewTransfer(a, address, 1)

			var re *state.UnknownReceiverError
			if !errors.As(err, &re) {
				t.Fatalf("\t%s\tTest 3:\tShould get an unknown receiver error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get an unknown receiver error.", success)

			if _, err := s.NewTransfer(a, b, 0); !errors.Is(err, state.ErrZeroAmount) {
				t.Fatalf("\t%s\tTest 3:\tShould not send a zero amount: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould not send a zero amount.", success)
		}

		t.Logf("\tTest 4:\tWhen reopening the blockchain.")
		{
			if err := s.Close(); err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould be able to close: %s", failed, err)
			}

			s, err = state.Open(st.config())
			if err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould be able to open: %s", failed, err)
			}
			defer s.Close()

			blocks, err := s.Blocks()
			if err != nil {
				t.Fatalf("\t%s\tTest 4:\tShould be able to read the blocks: %s", failed, err)
			}

			if len(blocks) != 2 || !blocks[1].IsGenesis() {
				t.Fatalf("\t%s\tTest 4:\tShould read back two blocks ending at genesis.", failed)
			}
			t.Logf("\t%s\tTest 4:\tShould read back two blocks ending at genesis.", success)

			if bal := balance(t, s, a); bal != 60 {
				t.Fatalf("\t%s\tTest 4:\tShould still have 60 for A: got %d", failed, bal)
			}
			t.Logf("\t%s\tTest 4:\tShould still have 60 for A.", success)

			addresses, err := s.Addresses()
			if err != nil || len(addresses) != 2 {
				t.Fatalf("\t%s\tTest 4:\tShould list both wallets: %v", failed, addresses)
			}
			t.Logf("\t%s\tTest 4:\tShould list both wallets.", success)
		}
	}
}

func TestCreateFailures(t *testing.T) {
	st := stores{
		ledger:  memory.New(),
		spent:   memory.New(),
		wallets: memory.New(),
	}

	t.Log("Given the need to create a blockchain once.")
	{
		t.Logf("\tTest 0:\tWhen opening before creating.")
		{
			if _, err := state.Open(st.config()); !errors.Is(err, database.ErrUninitialized) {
				t.Fatalf("\t%s\tTest 0:\tShould get an uninitialized error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get an uninitialized error.", success)
		}

		t.Logf("\tTest 1:\tWhen the reward address is invalid.")
		{
			if _, err := state.Create(context.Background(), st.config(), "not-an-address", ""); !errors.Is(err, wallet.ErrInvalidAddress) {
				t.Fatalf("\t%s\tTest 1:\tShould get an invalid address error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get an invalid address error.", success)
		}

		t.Logf("\tTest 2:\tWhen creating twice.")
		{
			a := addWallet(t, st, "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")

			if _, err := state.Create(context.Background(), st.config(), a, "genesis"); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to create the blockchain: %s", failed, err)
			}

			if _, err := state.Create(context.Background(), st.config(), a, "genesis"); !errors.Is(err, database.ErrLedgerExists) {
				t.Fatalf("\t%s\tTest 2:\tShould not create the blockchain twice: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould not create the blockchain twice.", success)
		}

		t.Logf("\tTest 3:\tWhen the genesis block can't be read back.")
		{
			fresh := stores{
				ledger:  memory.New(),
				spent:   memory.New(),
				wallets: memory.New(),
			}
			a := addWallet(t, fresh, "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")

			cfg := fresh.config()
			cfg.Ledger = unreadableBlocks{fresh.ledger}

			_, err := state.Create(context.Background(), cfg, a, "genesis")

			var se *database.StoreError
			if !errors.As(err, &se) || !errors.Is(err, errUnreadable) {
				t.Fatalf("\t%s\tTest 3:\tShould get a store read error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get a store read error.", success)

			if err := fresh.ledger.Put([]byte("k"), []byte("v")); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould leave the ledger store open for the caller: %s", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould leave the ledger store open for the caller.", success)

			for name, store := range map[string]*memory.Memory{"ledger": fresh.ledger, "spent": fresh.spent, "wallets": fresh.wallets} {
				if err := store.Close(); err != nil {
					t.Fatalf("\t%s\tTest 3:\tShould be able to close the %s store: %s", failed, name, err)
				}
			}
			t.Logf("\t%s\tTest 3:\tShould be able to close every store.", success)
		}
	}
}

var errUnreadable = errors.New("block unreadable")

// unreadableBlocks fails every read except the tip pointer.
type unreadableBlocks struct {
	*memory.Memory
}

func (u unreadableBlocks) Get(key []byte) ([]byte, error) {
	if string(key) != "LAST" {
		return nil, errUnreadable
	}
	return u.Memory.Get(key)
}
