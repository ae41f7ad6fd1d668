package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vuen/kiosk/internal/types"
)

func init() {
	rootCmd.AddCommand(cartCmd)
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartRemoveCmd, cartClearCmd)
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect or modify the cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		var state struct {
			Surface struct {
				Cart  []types.CartLine `json:"cart"`
				Total float64          `json:"total"`
			} `json:"surface"`
		}
		if err := controlGet(cfg, "/api/state", &state); err != nil {
			return err
		}

		if len(state.Surface.Cart) == 0 {
			fmt.Fprintln(os.Stdout, "cart is empty")
			return nil
		}
		for _, line := range state.Surface.Cart {
			fmt.Fprintf(os.Stdout, "%2d x %-24s $%.2f\n", line.Qty, line.Name, line.Price*float64(line.Qty))
		}
		fmt.Fprintf(os.Stdout, "total: $%.2f\n", state.Surface.Total)
		return nil
	},
}

func submitOp(op types.OpKind, args []string) error {
	cfg := loadConfig()

	qty := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		qty = n
	}

	body := map[string]any{
		"ops": []types.CartOperation{{Op: op, Name: args[0], Qty: qty}},
	}
	if err := controlPost(cfg, "/api/cart/ops", body, nil); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "submitted")
	return nil
}

var cartAddCmd = &cobra.Command{
	Use:   "add <name> [qty]",
	Short: "Add an item to the cart",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitOp(types.OpAdd, args)
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <name> [qty]",
	Short: "Remove an item from the cart",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitOp(types.OpRemove, args)
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		body := map[string]any{
			"ops": []types.CartOperation{{Op: types.OpClear}},
		}
		if err := controlPost(cfg, "/api/cart/ops", body, nil); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "submitted")
		return nil
	},
}
