package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/pow"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/state"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/pandanite/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newState(t *testing.T) *state.State {
	pub, _, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}
	miner := database.PublicKeyToAddress(pub)

	// Blocks are mined faster than the clock ticks, so every retarget climbs
	// to the maximum. Keep the maximum low enough to stay solvable.
	params := state.Params{
		MinDifficulty:           1,
		MaxDifficulty:           8,
		Lookback:                100,
		DesiredBlockTime:        90,
		MaxTransactionsPerBlock: 100,
		MaxFutureDrift:          7200,
		MedianWindow:            10,
	}

	now := uint64(time.Now().Unix())
	genesis := database.NewBlock(1, now, 1, signature.ZeroHash, []database.Transaction{
		database.NewFeeTransaction(miner, state.MiningFee(1), now),
	})

	genesis.Header.Nonce, err = pow.Mine(context.Background(), genesis.Hash(), 1, nil)
	if err != nil {
		t.Fatalf("Should be able to mine the genesis block: %s", err)
	}

	st, err := state.New(state.Config{
		MinerAddress: miner,
		Storage:      memory.New(),
		Params:       params,
		Genesis:      &genesis,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	return st
}

func waitForHeight(st *state.State, height uint64) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if h, _ := st.Height(); h >= height {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}

	return false
}

func Test_Mining(t *testing.T) {
	t.Log("Given the need to mine blocks in the background.")
	{
		t.Logf("\tTest 0:\tWhen the worker is running.")
		{
			st := newState(t)
			worker.Run(st, nil)

			if !waitForHeight(st, 5) {
				t.Fatalf("\t%s\tTest 0:\tShould keep mining new blocks.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep mining new blocks.", success)

			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to shutdown: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to shutdown.", success)
		}

		t.Logf("\tTest 1:\tWhen a block arrives from outside.")
		{
			st := newState(t)
			w := worker.Run(st, nil)
			defer w.Shutdown()

			if !waitForHeight(st, 2) {
				t.Fatalf("\t%s\tTest 1:\tShould start mining.", failed)
			}

			// Whatever the outcome of the block, mining resumes afterwards.
			tip, _ := st.LatestBlock()
			status, err := st.AddBlock(tip)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould not get a storage error: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the stale block: %s", success, status)

			height, _ := st.Height()
			if !waitForHeight(st, height+2) {
				t.Fatalf("\t%s\tTest 1:\tShould resume mining.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould resume mining.", success)
		}

		t.Logf("\tTest 2:\tWhen mining runs past a retarget.")
		{
			st := newState(t)
			w := worker.Run(st, nil)
			defer w.Shutdown()

			params := st.Params()
			if !waitForHeight(st, params.Lookback+5) {
				t.Fatalf("\t%s\tTest 2:\tShould keep mining after the difficulty changes.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould keep mining after the difficulty changes.", success)

			difficulty, _ := st.Difficulty()
			if difficulty > params.MaxDifficulty {
				t.Fatalf("\t%s\tTest 2:\tShould stay within the maximum, got %d.", failed, difficulty)
			}
			t.Logf("\t%s\tTest 2:\tShould stay within the maximum difficulty.", success)
		}

		t.Logf("\tTest 3:\tWhen shutting down more than once.")
		{
			st := newState(t)
			w := worker.Run(st, nil)

			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to shutdown: %s", failed, err)
			}
			w.Shutdown()
			w.Shutdown()
			t.Logf("\t%s\tTest 3:\tShould be able to shutdown repeatedly.", success)

			w.SignalStartMining()
			height, _ := st.Height()
			time.Sleep(100 * time.Millisecond)
			if h, _ := st.Height(); h != height {
				t.Fatalf("\t%s\tTest 3:\tShould not mine after shutdown, got %d exp %d.", failed, h, height)
			}
			t.Logf("\t%s\tTest 3:\tShould not mine after shutdown.", success)
		}
	}
}
