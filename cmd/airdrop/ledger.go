package main

import (
	"fmt"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/claimer"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/config"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/converter"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/distributor"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/token"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/transport"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/vestedClaimer"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/whitelist"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// ledgerAction opens the ledger for the duration of one subcommand.
type ledgerAction func(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error

func withLedger(action ledgerAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		l, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		led, closeLedger, err := openLedger(c, l)
		if err != nil {
			return err
		}
		defer closeLedger()

		return action(c, l, led)
	}
}

func ledgerCommand() *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Deploy and drive airdrop contracts against the configured state store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "sender",
				Aliases: []string{"from"},
				Usage:   "Address the transaction is sent from",
				EnvVars: []string{config.EnvAirdropSender},
			},
			&cli.Uint64Flag{
				Name:  "at",
				Usage: "Execute at this unix timestamp instead of the system or chain clock",
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "deploy-token",
				Usage: "Deploy an ERC20 token minting the whole supply to the holder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Value: "Swapr"},
					&cli.StringFlag{Name: "symbol", Value: "SWPR"},
					&cli.StringFlag{Name: "holder", Usage: "Initial holder (defaults to the sender)"},
					&cli.StringFlag{Name: "supply", Value: "100000000000000000000000000"},
				},
				Action: withLedger(deployTokenCommand),
			},
			{
				Name: "deploy-claimer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "merkle-root", Required: true},
					&cli.Uint64Flag{Name: "claim-time-limit", Required: true},
				},
				Action: withLedger(deployClaimerCommand),
			},
			{
				Name: "deploy-vested-claimer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "merkle-root", Required: true},
					&cli.Uint64Flag{Name: "release-time-limit", Required: true},
					&cli.Uint64Flag{Name: "start", Required: true},
					&cli.Uint64Flag{Name: "duration", Required: true},
					&cli.Uint64Flag{Name: "cliff", Required: true},
				},
				Action: withLedger(deployVestedClaimerCommand),
			},
			{
				Name: "deploy-distributor",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
				},
				Action: withLedger(deployDistributorCommand),
			},
			{
				Name: "deploy-converter",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old-token", Required: true},
					&cli.StringFlag{Name: "new-token", Required: true},
				},
				Action: withLedger(deployConverterCommand),
			},
			{
				Name: "transfer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "to", Required: true},
					&cli.StringFlag{Name: "amount", Required: true},
				},
				Action: withLedger(transferCommand),
			},
			{
				Name: "approve",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "spender", Required: true},
					&cli.StringFlag{Name: "amount", Required: true, Usage: "Amount, or 'max' for an unlimited allowance"},
				},
				Action: withLedger(approveCommand),
			},
			{
				Name:  "balance",
				Usage: "Print an account's token balance",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "account", Required: true},
				},
				Action: withLedger(balanceCommand),
			},
			{
				Name:   "claim",
				Usage:  "Claim from an immediate claimer as the sender",
				Flags:  claimFlags(),
				Action: withLedger(claimCommand),
			},
			{
				Name:   "release",
				Usage:  "Release vested tokens as the sender",
				Flags:  claimFlags(),
				Action: withLedger(releaseCommand),
			},
			{
				Name:  "releasable",
				Usage: "Print how much an account could release right now",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.StringFlag{Name: "account", Required: true},
					&cli.StringFlag{Name: "amount", Required: true, Usage: "The account's whitelisted amount"},
				},
				Action: withLedger(releasableCommand),
			},
			{
				Name:  "recover",
				Usage: "Recover unclaimed tokens from a claimer or vested claimer after its time limit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
				},
				Action: withLedger(recoverCommand),
			},
			{
				Name: "transfer-ownership",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.StringFlag{Name: "new-owner", Required: true},
				},
				Action: withLedger(transferOwnershipCommand),
			},
			{
				Name:  "distribute",
				Usage: "Push-distribute tokens to every account of a leaves file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.StringFlag{Name: "recipients", Required: true, Usage: "Leaves file with the recipients and amounts"},
					&cli.StringFlag{Name: "total", Usage: "Amount pulled from the sender (defaults to the sum of the recipients)"},
				},
				Action: withLedger(distributeCommand),
			},
			{
				Name:  "convert",
				Usage: "Swap an account's whole old token balance for the new token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.StringFlag{Name: "account", Usage: "Account to convert (defaults to the sender)"},
				},
				Action: withLedger(convertCommand),
			},
		},
	}
}

func claimFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "contract", Required: true},
		&cli.StringFlag{Name: "proofs", Usage: "Proofs file to take the sender's amount and proof from"},
		&cli.StringFlag{Name: "proof-server", Usage: "Proof server URL to fetch the sender's amount and proof from"},
		&cli.StringFlag{Name: "amount"},
		&cli.StringFlag{Name: "proof", Usage: "Comma separated 0x-prefixed sibling hashes"},
	}
}

func senderFlag(c *cli.Context) (common.Address, error) {
	if c.String("sender") == "" {
		return common.Address{}, fmt.Errorf("--sender is required")
	}
	return addressFlag(c, "sender")
}

func optionalAddressFlag(c *cli.Context, name string, fallback common.Address) (common.Address, error) {
	if c.String(name) == "" {
		return fallback, nil
	}
	return addressFlag(c, name)
}

func printDeployed(c *cli.Context, kind string, addr common.Address) error {
	return printJSON(c, map[string]string{"kind": kind, "address": addr.Hex()})
}

func deployTokenCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	holder, err := optionalAddressFlag(c, "holder", sender)
	if err != nil {
		return err
	}
	supply, err := amountFlag(c, "supply")
	if err != nil {
		return err
	}

	t, err := token.Deploy(c.Context, led, sender, c.String("name"), c.String("symbol"), holder, supply)
	if err != nil {
		return err
	}
	l.Sugar().Infow("Deployed token", "address", t.Address().Hex(), "holder", holder.Hex(), "supply", supply.Dec())
	return printDeployed(c, token.Kind, t.Address())
}

func deployClaimerCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	tokenAddr, err := addressFlag(c, "token")
	if err != nil {
		return err
	}
	root, err := hashFlag(c, "merkle-root")
	if err != nil {
		return err
	}

	cl, err := claimer.Deploy(c.Context, led, sender, tokenAddr, root, c.Uint64("claim-time-limit"))
	if err != nil {
		return err
	}
	l.Sugar().Infow("Deployed claimer", "address", cl.Address().Hex(), "token", tokenAddr.Hex())
	return printDeployed(c, claimer.Kind, cl.Address())
}

func deployVestedClaimerCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	tokenAddr, err := addressFlag(c, "token")
	if err != nil {
		return err
	}
	root, err := hashFlag(c, "merkle-root")
	if err != nil {
		return err
	}

	p := vestedParamsFromFlags(c)
	vc, err := vestedClaimer.Deploy(c.Context, led, sender, tokenAddr, root, p.ReleaseTimeLimit, p.Start, p.Duration, p.Cliff)
	if err != nil {
		return err
	}
	l.Sugar().Infow("Deployed vested claimer", "address", vc.Address().Hex(), "token", tokenAddr.Hex())
	return printDeployed(c, vestedClaimer.Kind, vc.Address())
}

func deployDistributorCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	tokenAddr, err := addressFlag(c, "token")
	if err != nil {
		return err
	}
	d, err := distributor.Deploy(c.Context, led, sender, tokenAddr)
	if err != nil {
		return err
	}
	l.Sugar().Infow("Deployed distributor", "address", d.Address().Hex(), "token", tokenAddr.Hex())
	return printDeployed(c, distributor.Kind, d.Address())
}

func deployConverterCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	oldToken, err := addressFlag(c, "old-token")
	if err != nil {
		return err
	}
	newToken, err := addressFlag(c, "new-token")
	if err != nil {
		return err
	}
	cv, err := converter.Deploy(c.Context, led, sender, oldToken, newToken)
	if err != nil {
		return err
	}
	l.Sugar().Infow("Deployed converter", "address", cv.Address().Hex())
	return printDeployed(c, converter.Kind, cv.Address())
}

func tokenFlag(c *cli.Context, led *ledger.Ledger) (*token.ERC20, error) {
	addr, err := addressFlag(c, "token")
	if err != nil {
		return nil, err
	}
	return token.At(c.Context, led, addr)
}

func transferCommand(c *cli.Context, _ *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	t, err := tokenFlag(c, led)
	if err != nil {
		return err
	}
	to, err := addressFlag(c, "to")
	if err != nil {
		return err
	}
	amount, err := amountFlag(c, "amount")
	if err != nil {
		return err
	}
	receipt, err := t.Transfer(c.Context, sender, to, amount)
	if err != nil {
		return err
	}
	return printJSON(c, receipt)
}

func approveCommand(c *cli.Context, _ *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	t, err := tokenFlag(c, led)
	if err != nil {
		return err
	}
	spender, err := addressFlag(c, "spender")
	if err != nil {
		return err
	}

	var amount *uint256.Int
	if c.String("amount") == "max" {
		amount = new(uint256.Int).SetAllOne()
	} else if amount, err = amountFlag(c, "amount"); err != nil {
		return err
	}

	receipt, err := t.Approve(c.Context, sender, spender, amount)
	if err != nil {
		return err
	}
	return printJSON(c, receipt)
}

func balanceCommand(c *cli.Context, _ *zap.Logger, led *ledger.Ledger) error {
	t, err := tokenFlag(c, led)
	if err != nil {
		return err
	}
	account, err := addressFlag(c, "account")
	if err != nil {
		return err
	}
	balance, err := t.BalanceOf(c.Context, account)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, balance.Dec())
	return err
}

// claimInputs resolves the sender's amount and proof from a proofs file, a
// proof server or --amount/--proof.
func claimInputs(c *cli.Context, l *zap.Logger, sender common.Address) (*uint256.Int, [][32]byte, error) {
	if url := c.String("proof-server"); url != "" {
		leaf, proof, err := transport.NewClient(url, l).GetProof(c.Context, sender)
		if err != nil {
			return nil, nil, err
		}
		return leaf.Amount, proof, nil
	}
	if path := c.String("proofs"); path != "" {
		pf, err := whitelist.LoadProofsFile(path)
		if err != nil {
			return nil, nil, err
		}
		leaf, proof, ok := pf.Lookup(sender)
		if !ok {
			return nil, nil, fmt.Errorf("%s is not in %s", sender.Hex(), path)
		}
		return leaf.Amount, proof, nil
	}

	amount, err := amountFlag(c, "amount")
	if err != nil {
		return nil, nil, err
	}
	proof, err := parseProof(c.String("proof"))
	if err != nil {
		return nil, nil, err
	}
	return amount, proof, nil
}

func contractFlag(c *cli.Context) (common.Address, error) {
	return addressFlag(c, "contract")
}

func claimCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	addr, err := contractFlag(c)
	if err != nil {
		return err
	}
	cl, err := claimer.At(c.Context, led, addr)
	if err != nil {
		return err
	}
	amount, proof, err := claimInputs(c, l, sender)
	if err != nil {
		return err
	}
	receipt, err := cl.Claim(c.Context, sender, amount, proof)
	if err != nil {
		return err
	}
	return printJSON(c, receipt)
}

func releaseCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	addr, err := contractFlag(c)
	if err != nil {
		return err
	}
	vc, err := vestedClaimer.At(c.Context, led, addr)
	if err != nil {
		return err
	}
	amount, proof, err := claimInputs(c, l, sender)
	if err != nil {
		return err
	}
	receipt, err := vc.Release(c.Context, sender, amount, proof)
	if err != nil {
		return err
	}
	return printJSON(c, receipt)
}

func releasableCommand(c *cli.Context, _ *zap.Logger, led *ledger.Ledger) error {
	addr, err := contractFlag(c)
	if err != nil {
		return err
	}
	vc, err := vestedClaimer.At(c.Context, led, addr)
	if err != nil {
		return err
	}
	account, err := addressFlag(c, "account")
	if err != nil {
		return err
	}
	amount, err := amountFlag(c, "amount")
	if err != nil {
		return err
	}

	var now uint64
	if err := led.View(c.Context, func(tx *ledger.Tx) error {
		now = tx.Timestamp()
		return nil
	}); err != nil {
		return err
	}

	releasable, err := vc.Releasable(c.Context, account, amount, now)
	if err != nil {
		return err
	}
	released, err := vc.Released(c.Context, account)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]any{
		"account":    account.Hex(),
		"timestamp":  now,
		"released":   released.Dec(),
		"releasable": releasable.Dec(),
	})
}

func recoverCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	addr, err := contractFlag(c)
	if err != nil {
		return err
	}

	kind, err := led.CodeAt(c.Context, addr)
	if err != nil {
		return err
	}

	var receipt *ledger.Receipt
	switch kind {
	case claimer.Kind:
		cl, err := claimer.At(c.Context, led, addr)
		if err != nil {
			return err
		}
		receipt, err = cl.Recover(c.Context, sender)
		if err != nil {
			return err
		}
	case vestedClaimer.Kind:
		vc, err := vestedClaimer.At(c.Context, led, addr)
		if err != nil {
			return err
		}
		receipt, err = vc.Recover(c.Context, sender)
		if err != nil {
			return err
		}
	case "":
		return fmt.Errorf("%w: %s", ledger.ErrNoContract, addr.Hex())
	default:
		return fmt.Errorf("%s is a %s, which has nothing to recover", addr.Hex(), kind)
	}

	l.Sugar().Infow("Recovered unclaimed tokens", "contract", addr.Hex(), "kind", kind)
	return printJSON(c, receipt)
}

func transferOwnershipCommand(c *cli.Context, _ *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	addr, err := contractFlag(c)
	if err != nil {
		return err
	}
	newOwner, err := addressFlag(c, "new-owner")
	if err != nil {
		return err
	}

	kind, err := led.CodeAt(c.Context, addr)
	if err != nil {
		return err
	}

	var receipt *ledger.Receipt
	switch kind {
	case claimer.Kind:
		cl, err := claimer.At(c.Context, led, addr)
		if err != nil {
			return err
		}
		receipt, err = cl.TransferOwnership(c.Context, sender, newOwner)
		if err != nil {
			return err
		}
	case vestedClaimer.Kind:
		vc, err := vestedClaimer.At(c.Context, led, addr)
		if err != nil {
			return err
		}
		receipt, err = vc.TransferOwnership(c.Context, sender, newOwner)
		if err != nil {
			return err
		}
	default:
		receipt, err = led.Execute(c.Context, sender, func(tx *ledger.Tx) error {
			if err := ledger.RequireCode(tx, addr, kind); err != nil {
				return err
			}
			return ledger.TransferOwnershipTx(tx, addr, newOwner)
		})
		if err != nil {
			return err
		}
	}
	return printJSON(c, receipt)
}

func distributeCommand(c *cli.Context, l *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	addr, err := contractFlag(c)
	if err != nil {
		return err
	}
	d, err := distributor.At(c.Context, led, addr)
	if err != nil {
		return err
	}

	recipients, err := whitelist.LoadLeaves(c.String("recipients"))
	if err != nil {
		return err
	}
	accounts := make([]common.Address, len(recipients))
	amounts := make([]*uint256.Int, len(recipients))
	sum := new(uint256.Int)
	for i, r := range recipients {
		accounts[i] = r.Account
		amounts[i] = r.Amount
		if _, overflow := sum.AddOverflow(sum, r.Amount); overflow {
			return whitelist.ErrTokenTotalOverflow
		}
	}

	total := sum
	if c.String("total") != "" {
		if total, err = amountFlag(c, "total"); err != nil {
			return err
		}
	}

	receipt, err := d.Distribute(c.Context, sender, total, accounts, amounts)
	if err != nil {
		return err
	}
	l.Sugar().Infow("Distributed tokens", "distributor", addr.Hex(), "recipients", len(accounts), "total", total.Dec())
	return printJSON(c, receipt)
}

func convertCommand(c *cli.Context, _ *zap.Logger, led *ledger.Ledger) error {
	sender, err := senderFlag(c)
	if err != nil {
		return err
	}
	addr, err := contractFlag(c)
	if err != nil {
		return err
	}
	cv, err := converter.At(c.Context, led, addr)
	if err != nil {
		return err
	}
	account, err := optionalAddressFlag(c, "account", sender)
	if err != nil {
		return err
	}
	receipt, err := cv.Convert(c.Context, sender, account)
	if err != nil {
		return err
	}
	return printJSON(c, receipt)
}
