package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/DrDelphi/LuckyOneBot/config"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/network"
	"github.com/DrDelphi/LuckyOneBot/utils"
	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const (
	flagConfig      = "config"
	flagNetwork     = "network"
	flagDeployments = "deployments"
	flagRPC         = "rpc"
	flagLogLevel    = "log-level"

	defaultCallbackGasLimit = 500000
)

var errNoRPC = errors.New("no RPC endpoint configured, set network.proxy or pass --rpc")

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   flagConfig + ", c",
		Usage:  "configuration file (.json or .toml)",
		Value:  utils.DefaultConfigPath,
		EnvVar: "LUCKYONE_CONFIG",
	},
	cli.StringFlag{
		Name:  flagNetwork + ", n",
		Usage: "network name, selects the deployment record",
	},
	cli.StringFlag{
		Name:  flagDeployments,
		Usage: "directory holding the deployment records",
	},
	cli.StringFlag{
		Name:   flagRPC,
		Usage:  "JSON-RPC endpoint, overrides network.proxy",
		EnvVar: "LUCKYONE_RPC",
	},
	cli.StringFlag{
		Name:  flagLogLevel,
		Usage: "logger level, e.g. *:DEBUG",
	},
}

// runnerFactory builds the Runner used by the commands, replaced in tests
var runnerFactory = newRunnerFromFlags

// setupRunnerFactory builds the Runner of setup-deployment from the command flags instead of a stored record
var setupRunnerFactory = newSetupRunnerFromFlags

// NewApp builds the command line application
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "luckyone"
	app.Usage = "LuckyOne lottery client"
	app.Version = "1.0.0"
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:   "status",
			Usage:  "show the lottery status dashboard",
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error { return r.Status(ctx) }),
		},
		{
			Name:  "buy-tickets",
			Usage: "buy tickets in the current round",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "tickets, count", Usage: "number of tickets (1-100)", Value: 1},
			},
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error {
				return r.BuyTickets(ctx, c.Uint64("tickets"))
			}),
		},
		{
			Name:  "claim-prize",
			Usage: "claim a won prize",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "round", Usage: "round to claim, scans the recent rounds when omitted"},
				cli.IntFlag{Name: "rounds", Usage: "how many recent rounds to scan", Value: utils.DefaultPlayerRounds},
			},
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error {
				return r.ClaimPrize(ctx, c.Uint64("round"), c.Int("rounds"))
			}),
		},
		{
			Name:  "end-lottery",
			Usage: "end the current round and request the winner selection",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "force", Usage: "skip the expiry check"},
			},
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error {
				return r.EndLottery(ctx, c.Bool("force"))
			}),
		},
		{
			Name:   "restart-lottery",
			Usage:  "restart an expired round without tickets",
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error { return r.RestartLottery(ctx) }),
		},
		{
			Name:   "withdraw-fees",
			Usage:  "withdraw the accumulated fees (owner only)",
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error { return r.WithdrawFees(ctx) }),
		},
		{
			Name:  "transfer-ownership",
			Usage: "transfer the contract ownership (owner only)",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "to", Usage: "new owner address"},
			},
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error {
				return r.TransferOwnership(ctx, c.String("to"))
			}),
		},
		{
			Name:  "player-info",
			Usage: "show the participation of a player",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "address", Usage: "player address, defaults to the configured wallet"},
				cli.IntFlag{Name: "rounds", Usage: "how many recent rounds to show", Value: utils.DefaultPlayerRounds},
			},
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error {
				return r.PlayerInfo(ctx, c.String("address"), c.Int("rounds"))
			}),
		},
		{
			Name:  "history",
			Usage: "show the completed rounds",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "limit", Usage: "how many rounds to show", Value: utils.DefaultHistoryLimit},
			},
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error {
				return r.History(ctx, c.Int("limit"))
			}),
		},
		{
			Name:  "fees",
			Usage: "show the fee structure and a fee quote",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "tickets", Usage: "tickets to quote", Value: 1},
			},
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error {
				return r.Fees(ctx, c.Uint64("tickets"))
			}),
		},
		{
			Name:   "watch",
			Usage:  "follow the current round until interrupted",
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error { return r.Watch(ctx) }),
		},
		{
			Name:  "setup-deployment",
			Usage: "verify an already deployed lottery contract and write its deployment record",
			Flags: []cli.Flag{
				cli.StringFlag{Name: flagNetwork, Usage: "network name of the record, overrides the global flag"},
				cli.StringFlag{Name: "address", Usage: "lottery contract address"},
				cli.StringFlag{Name: "vrf-coordinator", Usage: "VRF coordinator address"},
				cli.StringFlag{Name: "subscription-id", Usage: "VRF subscription id"},
				cli.StringFlag{Name: "gas-lane", Usage: "VRF gas lane key hash"},
				cli.Uint64Flag{Name: "callback-gas-limit", Usage: "VRF callback gas limit", Value: defaultCallbackGasLimit},
				cli.StringFlag{Name: "deployer", Usage: "address that deployed the contract"},
				cli.StringFlag{Name: "deployed-at", Usage: "deployment time (RFC 3339)"},
			},
			Action: runWith(
				func(ctx context.Context, c *cli.Context) (*Runner, error) { return setupRunnerFactory(ctx, c) },
				func(ctx context.Context, c *cli.Context, r *Runner) error { return r.SetupDeployment(ctx) },
			),
		},
		{
			Name:   "bot",
			Usage:  "run the Telegram announcer until interrupted",
			Action: withRunner(func(ctx context.Context, c *cli.Context, r *Runner) error { return r.RunBot(ctx) }),
		},
	}

	return app
}

type runnerBuilder func(ctx context.Context, c *cli.Context) (*Runner, error)

type runnerAction func(ctx context.Context, c *cli.Context, r *Runner) error

func withRunner(run runnerAction) func(c *cli.Context) error {
	return runWith(func(ctx context.Context, c *cli.Context) (*Runner, error) { return runnerFactory(ctx, c) }, run)
}

func runWith(build runnerBuilder, run runnerAction) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, err := build(ctx, c)
		if err != nil {
			return err
		}
		defer r.Close()

		return run(ctx, c, r)
	}
}

// LoadConfig reads the configuration file named by the flags and applies the flag overrides
func LoadConfig(c *cli.Context) (*data.AppConfig, error) {
	cfg, err := config.NewConfig(c.GlobalString(flagConfig))
	if err != nil {
		return nil, err
	}

	if name := c.GlobalString(flagNetwork); name != "" {
		cfg.Network.Name = name
	}
	if dir := c.GlobalString(flagDeployments); dir != "" {
		cfg.DeploymentsDir = dir
	}
	if rpc := c.GlobalString(flagRPC); rpc != "" {
		cfg.Network.Proxy = rpc
	}
	if level := c.GlobalString(flagLogLevel); level != "" {
		cfg.LogLevel = level
	}

	err = logger.SetLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}

	return cfg, nil
}

func newRunnerFromFlags(ctx context.Context, c *cli.Context) (*Runner, error) {
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}

	deployment, err := config.LoadDeployment(cfg.DeploymentsDir, cfg.Network.Name)
	if err != nil {
		return nil, err
	}

	return dialRunner(ctx, c, cfg, deployment)
}

func newSetupRunnerFromFlags(ctx context.Context, c *cli.Context) (*Runner, error) {
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}

	deployment, err := deploymentFromFlags(c, cfg)
	if err != nil {
		return nil, err
	}

	return dialRunner(ctx, c, cfg, deployment)
}

func deploymentFromFlags(c *cli.Context, cfg *data.AppConfig) (*data.Deployment, error) {
	address := c.String("address")
	if !common.IsHexAddress(address) || common.HexToAddress(address) == (common.Address{}) {
		return nil, errors.Wrapf(ErrInvalidAddress, "lottery address %q", address)
	}

	name := cfg.Network.Name
	if local := c.String(flagNetwork); local != "" {
		name = local
	}

	return &data.Deployment{
		Network:          name,
		LotteryAddress:   common.HexToAddress(address).Hex(),
		VrfCoordinator:   c.String("vrf-coordinator"),
		SubscriptionID:   c.String("subscription-id"),
		GasLane:          c.String("gas-lane"),
		CallbackGasLimit: json.Number(strconv.FormatUint(c.Uint64("callback-gas-limit"), 10)),
		DeployedAt:       c.String("deployed-at"),
		Deployer:         c.String("deployer"),
	}, nil
}

func dialRunner(ctx context.Context, c *cli.Context, cfg *data.AppConfig, deployment *data.Deployment) (*Runner, error) {
	if cfg.Network.Proxy == "" {
		return nil, errNoRPC
	}

	key, err := utils.LoadSigningKey(cfg)
	if err != nil && !errors.Is(err, utils.ErrNoSigningKey) {
		return nil, err
	}

	client, err := network.DialBackend(ctx, cfg.Network.Proxy)
	if err != nil {
		return nil, err
	}

	r, err := NewRunner(ArgsRunner{
		Out:        c.App.Writer,
		Config:     cfg,
		Deployment: deployment,
		Backend:    client,
		PrivateKey: key,
		OnClose:    client.Close,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return r, nil
}
