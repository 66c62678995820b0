package wallet_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestUser(t *testing.T) {
	t.Log("Given the need to manage a wallet key pair.")
	{
		alice, err := wallet.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a user: %s", failed, err)
		}
		bob, err := wallet.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a user: %s", failed, err)
		}

		t.Logf("\tTest 0:\tWhen sending coins.")
		{
			tx, err := alice.Send(bob.Address(), 100, 1, 1700000000)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign the transaction: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to sign the transaction.", success)

			sender, err := tx.Sender()
			if err != nil || sender != alice.Address() || !tx.SignatureValid() {
				t.Fatalf("\t%s\tTest 0:\tShould be sent by alice with a valid signature.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be sent by alice with a valid signature.", success)

			if fee := bob.Mine(500000, 1700000000); !fee.IsFee() || fee.To != bob.Address() {
				t.Fatalf("\t%s\tTest 0:\tShould build a fee transaction for bob.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould build a fee transaction for bob.", success)
		}

		t.Logf("\tTest 1:\tWhen storing the key pair.")
		{
			path := filepath.Join(t.TempDir(), "keys.json")
			if err := alice.Save(path); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to save the keys: %s", failed, err)
			}

			loaded, err := wallet.Load(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load the keys: %s", failed, err)
			}
			if loaded.Address() != alice.Address() || !loaded.PrivateKey().Equal(alice.PrivateKey()) {
				t.Fatalf("\t%s\tTest 1:\tShould load back the same keys.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould load back the same keys.", success)

			data, _ := os.ReadFile(path)
			tampered := strings.Replace(string(data), alice.Address().String(), bob.Address().String(), 1)
			if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to write the file: %s", failed, err)
			}

			if _, err := wallet.Load(path); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a wallet that does not match the keys.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a wallet that does not match the keys.", success)
		}
	}
}
