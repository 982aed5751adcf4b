// This program is the command line interface to the blockchain: it creates
// the chain, manages wallets, sends value and prints the ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/utxochain/app/tooling/chain/commands"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. Logs go to stderr so the command
	// output on stdout stays readable.
	log, err := logger.New("CHAIN", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("command", "ERROR", err)
		log.Sync()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Args  conf.Args
		Chain struct {
			DBPath        string        `conf:"default:zblock/chain"`
			Difficulty    uint          `conf:"default:2"`
			Network       string        `conf:"default:mainnet"`
			Memo          string
			MiningTimeout time.Duration `conf:"default:0s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "utxo blockchain command line",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags. Everything that is
	// not a flag is handed to the command tree.
	const prefix = "CHAIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			fmt.Println(commands.Usage)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}

	traceID := uuid.NewString()
	log.Infow("startup", "traceid", traceID, "version", build, "config", out)

	// =========================================================================
	// Run Command

	// Interrupting the program cancels any mining in progress.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Chain.MiningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Chain.MiningTimeout)
		defer cancel()
	}

	// The blockchain packages accept a function of this signature to allow
	// the application to log.
	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "traceid", traceID)
	}

	cmdCfg := commands.Config{
		DBPath:     cfg.Chain.DBPath,
		Difficulty: cfg.Chain.Difficulty,
		Network:    cfg.Chain.Network,
		Memo:       cfg.Chain.Memo,
		Out:        os.Stdout,
		EvHandler:  ev,
	}

	return commands.Execute(ctx, cmdCfg, []string(cfg.Args))
}
