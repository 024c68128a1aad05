package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sareesanskriti/storefront/internal/catalog"
	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"p"},
		Short:   "Browse the catalog",
	}

	var filter catalog.Filter
	list := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			products, err := a.catalog().List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Fprintln(a.out, "No products found.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tFABRIC\tPRICE")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Fabric, rupees(p.Price))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVarP(&filter.Query, "query", "q", "", "search name and description")
	list.Flags().StringVar(&filter.Category, "category", catalog.All, "category, or \"all\"")
	list.Flags().StringVar(&filter.Fabric, "fabric", catalog.All, "fabric, or \"all\"")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.catalog().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\n%s\n\n", p.Name, rupees(p.Price))
			if p.Description != "" {
				fmt.Fprintf(a.out, "%s\n\n", p.Description)
			}
			fmt.Fprintf(a.out, "Fabric:   %s\nCategory: %s\n", p.Fabric, p.Category)
			if len(p.ImageURLs) > 0 {
				fmt.Fprintf(a.out, "Images:   %s\n", strings.Join(p.ImageURLs, ", "))
			}
			return nil
		},
	}

	facets := &cobra.Command{
		Use:   "facets",
		Short: "List the categories and fabrics on offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := a.catalog().Facets(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Categories: %s\nFabrics:    %s\n", strings.Join(f.Categories, ", "), strings.Join(f.Fabrics, ", "))
			return nil
		},
	}

	cmd.AddCommand(list, show, facets)
	return cmd
}

func rupees(amount float64) string {
	return "₹" + checkout.FormatRupees(decimal.NewFromFloat(amount))
}
