package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/client"
	"github.com/iov-one/escrowd/cmd/escrowd/app"
	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/iov-one/escrowd/x/sigs"
	"github.com/spf13/cobra"
)

// CLI carries the configuration shared by all commands.
type CLI struct {
	cfg     Config
	connect func(remote string) *client.Client
}

// Command creates the escrowcli command tree.
func (c *CLI) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "escrowcli",
		Short:        "Create and settle escrows on an escrowd node",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&c.cfg.Node, "node", c.cfg.Node, "tendermint RPC address")
	cmd.PersistentFlags().StringVar(&c.cfg.Key, "key", c.cfg.Key, "path of the signing key file")
	cmd.PersistentFlags().StringVar(&c.cfg.ChainID, "chain-id", c.cfg.ChainID, "chain id, asked from the node when empty")

	cmd.AddCommand(
		c.keygenCommand(),
		c.addressCommand(),
		c.createCommand(),
		c.settleCommand("fund", "Move the escrow amount from your wallet into custody", func(id []byte, _ escrowd.Address) escrowd.Msg {
			return &escrow.FundMsg{EscrowID: id}
		}),
		c.settleCommand("release", "Pay the escrowed amount to the receiver", func(id []byte, receiver escrowd.Address) escrowd.Msg {
			return &escrow.ReleaseMsg{EscrowID: id, Receiver: receiver}
		}),
		c.settleCommand("cancel", "Return the escrowed amount to you", func(id []byte, _ escrowd.Address) escrowd.Msg {
			return &escrow.CancelMsg{EscrowID: id}
		}),
		c.escrowCommand(),
		c.balanceCommand(),
	)
	return cmd
}

func (c *CLI) keygenCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := crypto.GenPrivKeyEd25519()
			if err := saveKey(c.cfg.Key, key, force); err != nil {
				return err
			}
			return printAddress(cmd.OutOrStdout(), key.PublicKey().Address())
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing key file")
	return cmd
}

func (c *CLI) addressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "address <initializer> <receiver>",
		Short: "Print the id and custody address of an escrow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			initializer, receiver, err := parsePair(args[0], args[1])
			if err != nil {
				return err
			}
			id := escrow.EscrowID(initializer, receiver)
			fmt.Fprintf(cmd.OutOrStdout(), "escrow:  %X\n", id)
			fmt.Fprint(cmd.OutOrStdout(), "custody: ")
			return printAddress(cmd.OutOrStdout(), escrow.Condition(id).Address())
		},
	}
}

func (c *CLI) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <receiver> <amount>",
		Short: "Create an unfunded escrow paying to receiver",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiver, err := escrowd.ParseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidAmount, "%q", args[1])
			}
			res, err := c.submit(&escrow.CreateMsg{Receiver: receiver, Amount: amount})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

// settleCommand builds the fund, release and cancel commands. All of them
// address the escrow between the signer and given receiver.
func (c *CLI) settleCommand(use, short string, build func(id []byte, receiver escrowd.Address) escrowd.Msg) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <receiver>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiver, err := escrowd.ParseAddress(args[0])
			if err != nil {
				return err
			}
			key, err := loadKey(c.cfg.Key)
			if err != nil {
				return err
			}
			id := escrow.EscrowID(key.PublicKey().Address(), receiver)
			res, err := c.submit(build(id, receiver))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func (c *CLI) escrowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "escrow <initializer> <receiver>",
		Short: "Show an escrow and the amount held in custody",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			initializer, receiver, err := parsePair(args[0], args[1])
			if err != nil {
				return err
			}
			node := c.connect(c.cfg.Node)
			e, err := node.Escrow(escrow.EscrowID(initializer, receiver))
			if err != nil {
				return err
			}
			held, err := node.Balance(e.Address)
			if err != nil {
				return errors.Wrap(err, "custody balance")
			}
			return printJSON(cmd.OutOrStdout(), escrowView{Escrow: e, Held: held})
		},
	}
}

// escrowView is an escrow together with the amount its custody account
// holds.
type escrowView struct {
	*escrow.Escrow
	Held uint64 `json:"held"`
}

func (c *CLI) balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show the balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := escrowd.ParseAddress(args[0])
			if err != nil {
				return err
			}
			balance, err := c.connect(c.cfg.Node).Balance(addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance)
			return nil
		},
	}
}

// submit signs msg with the configured key and broadcasts it.
func (c *CLI) submit(msg escrowd.Msg) (*client.CommitResult, error) {
	key, err := loadKey(c.cfg.Key)
	if err != nil {
		return nil, err
	}
	node := c.connect(c.cfg.Node)

	chainID := c.cfg.ChainID
	if chainID == "" {
		if chainID, err = node.ChainID(); err != nil {
			return nil, err
		}
	}
	nonce, err := node.Nonce(key.PublicKey().Address())
	if err != nil {
		return nil, err
	}

	tx, err := app.NewTx(msg)
	if err != nil {
		return nil, err
	}
	sig, err := sigs.SignTx(key, tx, chainID, nonce)
	if err != nil {
		return nil, errors.Wrap(err, "cannot sign")
	}
	tx.Signatures = []*sigs.StdSignature{sig}
	return node.BroadcastTx(tx)
}

func parsePair(initializer, receiver string) (escrowd.Address, escrowd.Address, error) {
	a, err := escrowd.ParseAddress(initializer)
	if err != nil {
		return nil, nil, errors.Wrap(err, "initializer")
	}
	b, err := escrowd.ParseAddress(receiver)
	if err != nil {
		return nil, nil, errors.Wrap(err, "receiver")
	}
	return a, b, nil
}

func printAddress(w io.Writer, addr escrowd.Address) error {
	b32, err := addr.Bech32()
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	_, err = fmt.Fprintf(w, "%s (bech32:%s)\n", addr, b32)
	return err
}

func printResult(w io.Writer, res *client.CommitResult) error {
	_, err := fmt.Fprintf(w, "committed at height %d, tx %X\n", res.Height, res.Hash)
	if err != nil {
		return err
	}
	for _, tag := range res.Result.Tags {
		if _, err := fmt.Fprintf(w, "  %s=%s\n", tag.Key, tag.Value); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
