package utxo_test

import (
	"context"
	"crypto/ecdsa"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type account struct {
	pk  *ecdsa.PrivateKey
	pub []byte
	pkh []byte
}

func newAccount(t *testing.T, hexKey string) account {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	pub := signature.PublicKeyBytes(&pk.PublicKey)

	return account{
		pk:  pk,
		pub: pub,
		pkh: signature.PubKeyHash(pub),
	}
}

// transfer builds and appends a signed transfer using the engine to select
// the outputs being spent.
func transfer(t *testing.T, db *database.Database, engine *utxo.Engine, from account, to account, amount uint64) database.Tx {
	t.Helper()

	accumulated, selection, err := engine.FindSpendableOutputs(from.pkh, amount)
	if err != nil {
		t.Fatalf("Should be able to find spendable outputs: %s", err)
	}

	if accumulated < amount {
		t.Fatalf("Should have enough funds: got %d, need %d", accumulated, amount)
	}

	ids := make([]string, 0, len(selection))
	for id := range selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var tx database.Tx
	for _, id := range ids {
		for _, vout := range selection[id] {
			tx.Inputs = append(tx.Inputs, database.TxInput{From: id, Vout: vout, PubKey: from.pub})
		}
	}

	tx.Outputs = append(tx.Outputs, database.NewTxOutput(amount, to.pkh))
	if accumulated > amount {
		tx.Outputs = append(tx.Outputs, database.NewTxOutput(accumulated-amount, from.pkh))
	}

	id, err := tx.Hash()
	if err != nil {
		t.Fatalf("Should be able to hash the transaction: %s", err)
	}
	tx.ID = id

	if err := db.SignTransaction(&tx, from.pk); err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	if _, err := db.Append(context.Background(), []database.Tx{tx}); err != nil {
		t.Fatalf("Should be able to append the transaction: %s", err)
	}

	return tx
}

func values(outs []database.TxOutput) []uint64 {
	vs := make([]uint64, len(outs))
	for i, out := range outs {
		vs[i] = out.Value
	}
	return vs
}

// =============================================================================

func TestUTXO(t *testing.T) {
	a := newAccount(t, "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	b := newAccount(t, "aed31b6b5a1ea9d3dcbb6c2e5f1a42e0b1d4b1a8e5b3c2d8c0f1e2d3c4b5a697")

	cfg := database.Config{
		Store:      memory.New(),
		Difficulty: 1,
		Now:        time.Now,
	}

	db, err := database.Create(context.Background(), cfg, a.pkh, "")
	if err != nil {
		t.Fatalf("Should be able to create the ledger: %s", err)
	}

	spent := memory.New()
	engine := utxo.New(db, spent, nil)

	t.Log("Given the need to track unspent outputs.")
	{
		t.Logf("\tTest 0:\tWhen the chain only holds the genesis block.")
		{
			utxos, err := engine.FindUTXO(a.pkh)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to find utxos: %s", failed, err)
			}

			if !reflect.DeepEqual(values(utxos), []uint64{100}) {
				t.Logf("\t%s\tTest 0:\tgot: %v", failed, values(utxos))
				t.Logf("\t%s\tTest 0:\texp: %v", failed, []uint64{100})
				t.Fatalf("\t%s\tTest 0:\tShould have the genesis reward.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have the genesis reward.", success)
		}

		t.Logf("\tTest 1:\tWhen sending 40 from A to B.")
		{
			transfer(t, db, engine, a, b, 40)

			utxos, err := engine.FindUTXO(a.pkh)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to find utxos: %s", failed, err)
			}

			if !reflect.DeepEqual(values(utxos), []uint64{60}) {
				t.Logf("\t%s\tTest 1:\tgot: %v", failed, values(utxos))
				t.Logf("\t%s\tTest 1:\texp: %v", failed, []uint64{60})
				t.Fatalf("\t%s\tTest 1:\tShould have the change for A.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould have the change for A.", success)

			utxos, err = engine.FindUTXO(b.pkh)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to find utxos: %s", failed, err)
			}

			if !reflect.DeepEqual(values(utxos), []uint64{40}) {
				t.Logf("\t%s\tTest 1:\tgot: %v", failed, values(utxos))
				t.Logf("\t%s\tTest 1:\texp: %v", failed, []uint64{40})
				t.Fatalf("\t%s\tTest 1:\tShould have the transfer for B.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould have the transfer for B.", success)

			accumulated, _, err := engine.FindSpendableOutputs(a.pkh, 1000)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to find spendable outputs: %s", failed, err)
			}

			if accumulated != 60 {
				t.Fatalf("\t%s\tTest 1:\tShould only have 60 available: got %d", failed, accumulated)
			}
			t.Logf("\t%s\tTest 1:\tShould only have 60 available.", success)
		}

		t.Logf("\tTest 2:\tWhen spending outputs from several transactions.")
		{
			transfer(t, db, engine, b, a, 15)

			balance, err := engine.Balance(a.pkh)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to get a balance: %s", failed, err)
			}

			if balance != 75 {
				t.Fatalf("\t%s\tTest 2:\tShould have a balance of 75 for A: got %d", failed, balance)
			}
			t.Logf("\t%s\tTest 2:\tShould have a balance of 75 for A.", success)

			tx := transfer(t, db, engine, a, b, 70)
			if len(tx.Inputs) != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould spend two outputs: got %d", failed, len(tx.Inputs))
			}
			t.Logf("\t%s\tTest 2:\tShould spend two outputs.", success)

			ok, err := db.VerifyTransaction(tx)
			if err != nil || !ok {
				t.Fatalf("\t%s\tTest 2:\tShould verify a transaction with two inputs: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould verify a transaction with two inputs.", success)

			for _, exp := range []struct {
				acct    account
				name    string
				balance uint64
			}{
				{a, "A", 5},
				{b, "B", 95},
			} {
				balance, err := engine.Balance(exp.acct.pkh)
				if err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould be able to get a balance: %s", failed, err)
				}

				if balance != exp.balance {
					t.Fatalf("\t%s\tTest 2:\tShould have a balance of %d for %s: got %d", failed, exp.balance, exp.name, balance)
				}
				t.Logf("\t%s\tTest 2:\tShould have a balance of %d for %s.", success, exp.balance, exp.name)
			}
		}
	}
}

func TestUnspentIdempotent(t *testing.T) {
	a := newAccount(t, "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	b := newAccount(t, "aed31b6b5a1ea9d3dcbb6c2e5f1a42e0b1d4b1a8e5b3c2d8c0f1e2d3c4b5a697")

	db, err := database.Create(context.Background(), database.Config{Store: memory.New(), Difficulty: 1}, a.pkh, "")
	if err != nil {
		t.Fatalf("Should be able to create the ledger: %s", err)
	}

	spent := memory.New()
	engine := utxo.New(db, spent, nil)
	transfer(t, db, engine, a, b, 25)

	t.Log("Given the need to query unspent transactions repeatedly.")
	{
		t.Logf("\tTest 0:\tWhen nothing is appended between calls.")
		{
			first, err := engine.UnspentTransactions(a.pkh)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to get unspent transactions: %s", failed, err)
			}

			second, err := engine.UnspentTransactions(a.pkh)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to get unspent transactions: %s", failed, err)
			}

			if !reflect.DeepEqual(first, second) || len(first) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould get the same single transaction twice.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the same single transaction twice.", success)

			index, err := engine.SpentIndex()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the spent index: %s", failed, err)
			}

			genesis := first[0].Inputs[0].From
			if !reflect.DeepEqual(index, map[string][]int{genesis: {0}}) {
				t.Logf("\t%s\tTest 0:\tgot: %v", failed, index)
				t.Fatalf("\t%s\tTest 0:\tShould have recorded the genesis output as spent.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have recorded the genesis output as spent.", success)
		}

		t.Logf("\tTest 1:\tWhen recording the same spend again.")
		{
			index, err := engine.SpentIndex()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load the spent index: %s", failed, err)
			}

			for id, vouts := range index {
				if err := engine.RecordSpent(id, vouts); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to record spent outputs: %s", failed, err)
				}
			}

			again, err := engine.SpentIndex()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load the spent index: %s", failed, err)
			}

			if !reflect.DeepEqual(index, again) {
				t.Fatalf("\t%s\tTest 1:\tShould not grow the index.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not grow the index.", success)
		}
	}
}

func TestFindSpendableOutputs(t *testing.T) {
	a := newAccount(t, "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	b := newAccount(t, "aed31b6b5a1ea9d3dcbb6c2e5f1a42e0b1d4b1a8e5b3c2d8c0f1e2d3c4b5a697")

	db, err := database.Create(context.Background(), database.Config{Store: memory.New(), Difficulty: 1}, a.pkh, "")
	if err != nil {
		t.Fatalf("Should be able to create the ledger: %s", err)
	}

	engine := utxo.New(db, memory.New(), nil)
	for _, amount := range []uint64{10, 20, 30} {
		transfer(t, db, engine, a, b, amount)
	}

	tests := []struct {
		amount      uint64
		accumulated uint64
	}{
		{amount: 0, accumulated: 0},
		{amount: 1, accumulated: 30},
		{amount: 30, accumulated: 30},
		{amount: 31, accumulated: 50},
		{amount: 60, accumulated: 60},
		{amount: 61, accumulated: 60},
	}

	t.Log("Given the need to select outputs for a payment.")
	{
		for testID, tst := range tests {
			t.Logf("\tTest %d:\tWhen asking for %d.", testID, tst.amount)
			{
				accumulated, selection, err := engine.FindSpendableOutputs(b.pkh, tst.amount)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to find spendable outputs: %s", failed, testID, err)
				}

				if accumulated != tst.accumulated {
					t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, accumulated)
					t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.accumulated)
					t.Fatalf("\t%s\tTest %d:\tShould accumulate the right value.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould accumulate the right value.", success, testID)

				if accumulated < tst.amount && accumulated != 60 {
					t.Fatalf("\t%s\tTest %d:\tShould only fall short when every output is selected.", failed, testID)
				}

				var count int
				for _, vouts := range selection {
					count += len(vouts)
				}

				if tst.amount > 0 && count == 0 {
					t.Fatalf("\t%s\tTest %d:\tShould select outputs.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould select %d outputs.", success, testID, count)
			}
		}
	}
}
