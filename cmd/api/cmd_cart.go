package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"pcbuilder/internal/cart"
	"pcbuilder/internal/config"
	"pcbuilder/internal/infra/localstore"
	"pcbuilder/internal/logger"

	"github.com/spf13/cobra"
)

var (
	storePath string

	addName  string
	addPrice int64
)

// cartCmd はローカル（SQLite）に保存したカートを操作する。DBもサーバーも不要
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect and edit the local (SQLite) cart",
	Long: `Inspect and edit the cart kept in a local SQLite file.

Available subcommands:
  show   - Print the cart
  add    - Add one unit of a product
  remove - Remove a product line
  clear  - Empty the cart
  open   - Print the cart with the panel open
  close  - Print the cart with the panel closed

The panel state is not stored, so open/close only affect the printed output.`,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cart",
	Args:  cobra.NoArgs,
	RunE: withLocalCart(func(ctx context.Context, s *cart.Store, args []string) error {
		return nil
	}),
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add one unit of a product",
	Args:  cobra.ExactArgs(1),
	RunE: withLocalCart(func(ctx context.Context, s *cart.Store, args []string) error {
		id, err := parseProductID(args[0])
		if err != nil {
			return err
		}
		return s.AddItem(ctx, cart.Product{ID: id, Name: addName, Price: addPrice})
	}),
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a product line",
	Args:  cobra.ExactArgs(1),
	RunE: withLocalCart(func(ctx context.Context, s *cart.Store, args []string) error {
		id, err := parseProductID(args[0])
		if err != nil {
			return err
		}
		return s.RemoveItem(ctx, id)
	}),
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: withLocalCart(func(ctx context.Context, s *cart.Store, args []string) error {
		return s.Clear(ctx)
	}),
}

var cartOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Print the cart with the panel open",
	Args:  cobra.NoArgs,
	RunE: withLocalCart(func(ctx context.Context, s *cart.Store, args []string) error {
		s.SetOpen(true)
		return nil
	}),
}

var cartCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Print the cart with the panel closed",
	Args:  cobra.NoArgs,
	RunE: withLocalCart(func(ctx context.Context, s *cart.Store, args []string) error {
		s.SetOpen(false)
		return nil
	}),
}

func init() {
	cartCmd.PersistentFlags().StringVar(&storePath, "store", "", "SQLite file (default $LOCAL_STORE_PATH or pc_builder_cart.db)")

	cartAddCmd.Flags().StringVar(&addName, "name", "", "product name")
	cartAddCmd.Flags().Int64Var(&addPrice, "price", 0, "unit price")
	_ = cartAddCmd.MarkFlagRequired("name")
	_ = cartAddCmd.MarkFlagRequired("price")

	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartRemoveCmd, cartClearCmd, cartOpenCmd, cartCloseCmd)
}

type cartOp func(ctx context.Context, s *cart.Store, args []string) error

// ストアを開いて操作し、結果のカートを表示する
func withLocalCart(op cartOp) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := storePath
		if path == "" {
			path = config.LocalStorePath()
		}

		log, err := logger.New("dev", debug)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := localstore.Open(ctx, path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		s, err := cart.Open(ctx, db, cart.WithLogger(log))
		if err != nil {
			return err
		}
		if err := op(ctx, s, args); err != nil {
			return err
		}
		return printState(cmd.OutOrStdout(), s.Snapshot())
	}
}

func parseProductID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

func printState(w io.Writer, st cart.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
