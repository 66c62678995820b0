package database_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Key pair from RFC 8032 section 7.1, test 1.
const (
	seedHex    = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	addressHex = "9766bc6a50b376bd6fb25ecc5bd3288a663bbec900eb09c418"
)

func testKey(t *testing.T) ed25519.PrivateKey {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		t.Fatalf("Should be able to decode the seed: %s", err)
	}

	return ed25519.NewKeyFromSeed(seed)
}

func toAddress(t *testing.T, s string) database.Address {
	addr, err := database.ToAddress(s)
	if err != nil {
		t.Fatalf("Should be able to convert the address: %s", err)
	}

	return addr
}

func signedTx(t *testing.T) (database.Transaction, ed25519.PrivateKey) {
	pk := testKey(t)
	to := toAddress(t, strings.Repeat("11", 25))

	tx := database.NewTransaction(pk.Public().(ed25519.PublicKey), to, 100, 1, 1700000001)
	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	return signed, pk
}

// =============================================================================

func Test_TransactionHash(t *testing.T) {
	t.Log("Given the need to hash transactions.")
	{
		pk := testKey(t)
		miner := toAddress(t, addressHex)

		t.Logf("\tTest 0:\tWhen hashing a fee transaction.")
		{
			tx := database.NewFeeTransaction(miner, 500000, 1700000000)

			exp := "986b592b6953687ba8b4992355f17c021e8d6625dcc7dce0289c9ac512b742c5"
			if got := tx.ContentHash().String(); got != exp {
				t.Logf("\t\tTest 0:\tgot: %s", got)
				t.Logf("\t\tTest 0:\texp: %s", exp)
				t.Fatalf("\t%s\tTest 0:\tShould get back the right content hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the right content hash.", success)

			exp = "71e2b8f4040d1f256913916536b5abe9425d98fc537e1c3e97e153dd314ea997"
			if got := tx.Hash().String(); got != exp {
				t.Logf("\t\tTest 0:\tgot: %s", got)
				t.Logf("\t\tTest 0:\texp: %s", exp)
				t.Fatalf("\t%s\tTest 0:\tShould get back the right identity hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the right identity hash.", success)

			if _, err := tx.Sender(); !errors.Is(err, database.ErrNoSender) {
				t.Fatalf("\t%s\tTest 0:\tShould not have a sender, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not have a sender.", success)

			if _, err := tx.Sign(pk); !errors.Is(err, database.ErrNoSender) {
				t.Fatalf("\t%s\tTest 0:\tShould not be able to sign, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not be able to sign.", success)
		}

		t.Logf("\tTest 1:\tWhen hashing a transfer.")
		{
			tx, _ := signedTx(t)

			exp := "2d75fb881b77a0c9ac14835dd84a4c38fb3c5a2573872e5544c76d7ba593e68d"
			if got := tx.ContentHash().String(); got != exp {
				t.Logf("\t\tTest 1:\tgot: %s", got)
				t.Logf("\t\tTest 1:\texp: %s", exp)
				t.Fatalf("\t%s\tTest 1:\tShould include the sender in the content hash.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould include the sender in the content hash.", success)

			content := tx.ContentHash()
			if tx.Hash() != signature.SHA256(content[:], tx.Signature) {
				t.Fatalf("\t%s\tTest 1:\tShould include the signature in the identity hash.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould include the signature in the identity hash.", success)

			from, err := tx.Sender()
			if err != nil || from.String() != addressHex {
				t.Fatalf("\t%s\tTest 1:\tShould derive the sender from the signing key: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould derive the sender from the signing key.", success)
		}
	}
}

func Test_TransactionSignature(t *testing.T) {
	t.Log("Given the need to validate transaction signatures.")
	{
		tx, pk := signedTx(t)

		t.Logf("\tTest 0:\tWhen checking a signed transaction.")
		{
			if !tx.SignatureValid() {
				t.Fatalf("\t%s\tTest 0:\tShould have a valid signature.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have a valid signature.", success)

			for i := range tx.Signature {
				bad := tx
				bad.Signature = append([]byte(nil), tx.Signature...)
				bad.Signature[i] ^= 0x80
				if bad.SignatureValid() {
					t.Fatalf("\t%s\tTest 0:\tShould reject signature byte %d flipped.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould reject every flipped signature byte.", success)
		}

		t.Logf("\tTest 1:\tWhen changing content after signing.")
		{
			mutations := map[string]func(tx *database.Transaction){
				"amount":    func(tx *database.Transaction) { tx.Amount++ },
				"fee":       func(tx *database.Transaction) { tx.Fee++ },
				"timestamp": func(tx *database.Transaction) { tx.Timestamp++ },
				"to":        func(tx *database.Transaction) { tx.To[3] ^= 0x01 },
			}

			for field, mutate := range mutations {
				bad := tx
				mutate(&bad)
				if bad.SignatureValid() {
					t.Fatalf("\t%s\tTest 1:\tShould reject a changed %s.", failed, field)
				}
				t.Logf("\t%s\tTest 1:\tShould reject a changed %s.", success, field)
			}
		}

		t.Logf("\tTest 2:\tWhen signing with the wrong key.")
		{
			_, other, err := signature.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to generate a key: %s", failed, err)
			}

			unsigned := database.NewTransaction(pk.Public().(ed25519.PublicKey), tx.To, 1, 1, 1)
			if _, err := unsigned.Sign(other); !errors.Is(err, database.ErrSigningKeyMismatch) {
				t.Fatalf("\t%s\tTest 2:\tShould get a key mismatch error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a key mismatch error.", success)

			if unsigned.SignatureValid() {
				t.Fatalf("\t%s\tTest 2:\tShould not treat an unsigned transfer as valid.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould not treat an unsigned transfer as valid.", success)

			if _, err := unsigned.SignatureString(); !errors.Is(err, database.ErrUnsigned) {
				t.Fatalf("\t%s\tTest 2:\tShould get an unsigned error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get an unsigned error.", success)
		}
	}
}

func Test_TransactionEncoding(t *testing.T) {
	t.Log("Given the need to encode transactions.")
	{
		tx, _ := signedTx(t)
		fee := database.NewFeeTransaction(toAddress(t, addressHex), 500000, 1700000000)

		for testID, tst := range []database.Transaction{tx, fee} {
			t.Logf("\tTest %d:\tWhen round tripping %s.", testID, tst)
			{
				data, err := json.Marshal(tst)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to marshal to JSON: %s", failed, testID, err)
				}

				var got database.Transaction
				if err := json.Unmarshal(data, &got); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal from JSON: %s", failed, testID, err)
				}

				if !got.Equals(tst) {
					t.Fatalf("\t%s\tTest %d:\tShould get back the same transaction from JSON.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the same transaction from JSON.", success, testID)

				bin, err := database.EncodeTransaction(tst)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to encode: %s", failed, testID, err)
				}

				got, err = database.DecodeTransaction(bin)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to decode: %s", failed, testID, err)
				}

				if !got.Equals(tst) || got.IsFee() != tst.IsFee() {
					t.Fatalf("\t%s\tTest %d:\tShould get back the same transaction from binary.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the same transaction from binary.", success, testID)
			}
		}

		t.Logf("\tTest 2:\tWhen the JSON from field does not match the signing key.")
		{
			data, err := json.Marshal(tx)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to marshal to JSON: %s", failed, err)
			}

			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to unmarshal to a map: %s", failed, err)
			}

			if m["from"] != addressHex || m["timestamp"] != "1700000001" {
				t.Fatalf("\t%s\tTest 2:\tShould carry the sender and a string timestamp: %v", failed, m)
			}
			t.Logf("\t%s\tTest 2:\tShould carry the sender and a string timestamp.", success)

			m["from"] = strings.Repeat("22", 25)
			data, _ = json.Marshal(m)

			var got database.Transaction
			if err := json.Unmarshal(data, &got); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject a spoofed sender.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a spoofed sender.", success)
		}
	}
}

func Test_Block(t *testing.T) {
	t.Log("Given the need to work with blocks.")
	{
		miner := toAddress(t, addressHex)
		fee := database.NewFeeTransaction(miner, 500000, 1700000000)

		t.Logf("\tTest 0:\tWhen building a block with a single fee transaction.")
		{
			block := database.NewBlock(1, 1700000000, 16, signature.ZeroHash, []database.Transaction{fee})

			exp := "a493e9f6d22b0c8d4fcb190742c7cf38a465a6dc4c90abaf064d2175f76ae836"
			if got := block.Header.MerkleRoot.String(); got != exp {
				t.Logf("\t\tTest 0:\tgot: %s", got)
				t.Logf("\t\tTest 0:\texp: %s", exp)
				t.Fatalf("\t%s\tTest 0:\tShould get back the right merkle root.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the right merkle root.", success)

			exp = "c7e4f7a3328c54af7be554e3f84c050f3047cef0ec44c052026c6392f4e6fb29"
			if got := block.Hash().String(); got != exp {
				t.Logf("\t\tTest 0:\tgot: %s", got)
				t.Logf("\t\tTest 0:\texp: %s", exp)
				t.Fatalf("\t%s\tTest 0:\tShould get back the right block hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the right block hash.", success)

			other := block
			other.Header.ID = 99
			if other.Hash() != block.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould not include the id in the hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not include the id in the hash.", success)

			if addr, ok := block.Miner(); !ok || addr != miner {
				t.Fatalf("\t%s\tTest 0:\tShould find the miner.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould find the miner.", success)
		}

		t.Logf("\tTest 1:\tWhen round tripping a block.")
		{
			tx, _ := signedTx(t)
			block := database.NewBlock(2, 1700000005, 16, signature.SHA256([]byte("prev")), []database.Transaction{fee, tx})
			block.Header.Nonce = signature.SHA256([]byte("nonce"))

			data, err := json.Marshal(block)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to marshal to JSON: %s", failed, err)
			}

			var got database.Block
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to unmarshal from JSON: %s", failed, err)
			}

			if !got.Equal(block) {
				t.Fatalf("\t%s\tTest 1:\tShould get back the same block from JSON.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get back the same block from JSON.", success)

			bin, err := database.EncodeBlock(block)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to encode: %s", failed, err)
			}

			got, err = database.DecodeBlock(bin)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to decode: %s", failed, err)
			}

			if !got.Equal(block) || got.ComputeMerkleRoot() != block.Header.MerkleRoot {
				t.Fatalf("\t%s\tTest 1:\tShould get back the same block from binary.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get back the same block from binary.", success)
		}
	}
}

func Test_Balances(t *testing.T) {
	t.Log("Given the need to work with balances.")
	{
		a := toAddress(t, strings.Repeat("01", 25))
		b := toAddress(t, strings.Repeat("02", 25))

		t.Logf("\tTest 0:\tWhen copying and merging balances.")
		{
			bals := database.Balances{a: 10, b: 20}
			cp := bals.Copy()
			cp[a] = 99

			if bals[a] != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould not share storage with the copy.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not share storage with the copy.", success)

			bals.Merge(database.Balances{b: 5})
			if bals[b] != 5 || bals.Total().Uint64() != 15 {
				t.Fatalf("\t%s\tTest 0:\tShould merge the delta.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould merge the delta.", success)

			accounts := bals.Accounts()
			if len(accounts) != 2 || accounts[0].Address != a {
				t.Fatalf("\t%s\tTest 0:\tShould sort accounts by address.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould sort accounts by address.", success)
		}
	}
}
