// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/mempool"
	"github.com/ardanlabs/pandanite/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
	"github.com/ardanlabs/pandanite/foundation/validate"
)

// Set of errors the state api can return.
var (
	ErrNoGenesis        = errors.New("empty chain requires a genesis block")
	ErrNothingToPop     = errors.New("chain is empty")
	ErrCannotPopGenesis = errors.New("genesis block can't be popped")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress   database.Address
	Storage        storage.Storage
	Params         Params
	Genesis        *database.Block
	SelectStrategy string
	NetworkTime    func() uint64
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	minerAddress database.Address
	params       Params
	networkTime  func() uint64
	evHandler    EventHandler

	storage storage.Storage
	mempool *mempool.Mempool

	Worker Worker
}

// New constructs a new blockchain for data management. When the storage is
// empty the genesis block is added through the normal validation path.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := validate.Check(cfg.Params); err != nil {
		return nil, fmt.Errorf("validating params: %w", err)
	}

	networkTime := cfg.NetworkTime
	if networkTime == nil {
		networkTime = func() uint64 { return uint64(time.Now().Unix()) }
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFee
	}

	// Construct a mempool with the specified select strategy.
	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		minerAddress: cfg.MinerAddress,
		params:       cfg.Params,
		networkTime:  networkTime,
		evHandler:    ev,
		storage:      cfg.Storage,
		mempool:      mempool,
		Worker:       noWorker{},
	}

	height, err := cfg.Storage.NumBlocks()
	if err != nil {
		return nil, fmt.Errorf("reading height: %w", err)
	}

	if height == 0 {
		if cfg.Genesis == nil {
			return nil, ErrNoGenesis
		}

		ev("state: New: adding genesis block[%s]", cfg.Genesis.Hash())

		status, err := state.commit(*cfg.Genesis)
		if err != nil {
			return nil, fmt.Errorf("adding genesis: %w", err)
		}
		if err := status.Err(); err != nil {
			return nil, fmt.Errorf("adding genesis: %w", err)
		}
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	// Make sure the database is properly closed.
	return s.storage.Close()
}

// MinerAddress returns the address credited with the fees of mined blocks.
func (s *State) MinerAddress() database.Address {
	return s.minerAddress
}

// Params returns the consensus parameters the chain runs with.
func (s *State) Params() Params {
	return s.params
}

// =============================================================================

// noWorker is used until a worker registers itself with the state.
type noWorker struct{}

func (noWorker) Shutdown()           {}
func (noWorker) SignalStartMining()  {}
func (noWorker) SignalCancelMining() {}
