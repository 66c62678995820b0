package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/pandanite/foundation/blockchain/genesis"
	"github.com/ardanlabs/pandanite/foundation/blockchain/state"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage/backend"
	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
	"github.com/ardanlabs/pandanite/foundation/blockchain/worker"
	"github.com/ardanlabs/pandanite/foundation/logger"
	"github.com/ardanlabs/pandanite/foundation/nameservice"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		State struct {
			KeyPath        string `conf:"default:zblock/keys/miner.json"`
			GenesisPath    string `conf:"default:zblock/genesis.json"`
			Storage        string `conf:"default:bolt,help:bolt badger or memory"`
			DBPath         string `conf:"default:zblock/blocks.db"`
			SelectStrategy string `conf:"default:fee"`
			MinDifficulty  uint32 `conf:"default:16"`
			Mine           bool   `conf:"default:true"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/keys/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "pandanite consensus node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for wallet addresses.
	// The names come from the file names in the zblock/keys folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load wallet name service: %w", err)
	}

	// Logging the wallets for documentation in the logs.
	for addr, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "wallet", addr)
	}

	// =========================================================================
	// Blockchain Support

	// Need to load the key file for the configured miner so the wallet can
	// get credited with mining fees.
	miner, err := wallet.Load(cfg.State.KeyPath)
	if err != nil {
		return fmt.Errorf("unable to load key file for node: %w", err)
	}
	log.Infow("startup", "status", "miner", "name", ns.Lookup(miner.Address()), "wallet", miner.Address())

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	store, err := backend.Open(cfg.State.Storage, cfg.State.DBPath, log)
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}

	params := state.MainnetParams()
	params.MinDifficulty = cfg.State.MinDifficulty

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Every run of the node gets its own trace id.
	ev := logger.EventHandler(log, uuid.NewString())

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		MinerAddress:   miner.Address(),
		Storage:        store,
		Params:         params,
		Genesis:        &gen,
		SelectStrategy: cfg.State.SelectStrategy,
		EvHandler:      ev,
	})
	if err != nil {
		store.Close()
		return err
	}
	defer st.Shutdown()

	height, _ := st.Height()
	work, _ := st.TotalWork()
	log.Infow("startup", "status", "chain loaded", "height", height, "work", work)

	// The worker package implements mining. The worker will register itself
	// with the state.
	if cfg.State.Mine {
		worker.Run(st, ev)
	}

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	sig := <-shutdown
	log.Infow("shutdown", "status", "shutdown started", "signal", sig)
	defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

	return nil
}
