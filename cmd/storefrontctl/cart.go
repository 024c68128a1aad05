package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/spf13/cobra"
)

const maxQuantity = 100

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local shopping cart",
	}

	show := &cobra.Command{
		Annotations: localOnly,
		Use:         "show",
		Short:       "Show the cart",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCart(a.out, a.cart(cmd).Items())
		},
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if qty > maxQuantity {
				return fmt.Errorf("quantity must be at most %d", maxQuantity)
			}
			p, err := a.catalog().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			snap := a.cart(cmd).AddItem(cmd.Context(), p.Candidate(), qty)
			fmt.Fprintf(a.out, "Added %s. Cart has %d item(s).\n", p.Name, snap.ItemCount)
			return nil
		},
	}
	add.Flags().IntVarP(&qty, "quantity", "n", 1, "how many to add")

	update := &cobra.Command{
		Annotations: localOnly,
		Use:         "update <product-id> <quantity>",
		Short:       "Set the quantity of a line; 0 removes it",
		Args:        cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err == nil && n > maxQuantity {
				return fmt.Errorf("quantity must be at most %d", maxQuantity)
			}
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			snap := a.cart(cmd).UpdateQuantity(cmd.Context(), args[0], n)
			return printCart(a.out, snap.Items)
		},
	}

	remove := &cobra.Command{
		Annotations: localOnly,
		Use:         "remove <product-id>",
		Aliases:     []string{"rm"},
		Short:       "Remove a line from the cart",
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.cart(cmd).RemoveItem(cmd.Context(), args[0])
			return printCart(a.out, snap.Items)
		},
	}

	clearCmd := &cobra.Command{
		Annotations: localOnly,
		Use:         "clear",
		Short:       "Empty the cart",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.cart(cmd).ClearCart(cmd.Context())
			fmt.Fprintln(a.out, "Cart cleared.")
			return nil
		},
	}

	cmd.AddCommand(show, add, update, remove, clearCmd)
	return cmd
}

func printCart(out io.Writer, items cart.Cart) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t₹%s\n", it.ProductID, it.Name, it.Quantity, rupees(it.Price), checkout.FormatRupees(it.Subtotal()))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t₹%s\n", items.ItemCount(), checkout.FormatRupees(items.Total()))
	return tw.Flush()
}
