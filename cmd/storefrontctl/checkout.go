package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/spf13/cobra"
)

func addFormFlags(cmd *cobra.Command, form *checkout.Form) {
	cmd.Flags().StringVar(&form.CustomerName, "name", "", "your full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address (optional)")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&form.Address, "address", "", "delivery address")
}

func (a *app) checkoutService() (*checkout.Service, error) {
	return checkout.NewService(checkout.Config{
		Submitter:     checkout.NewOrderClient(a.apiURL, a.http, a.logger),
		WhatsAppPhone: a.whatsAppPhone,
		Timeout:       a.timeout,
		Logger:        a.logger,
	})
}

func newCheckoutCmd(a *app) *cobra.Command {
	var form checkout.Form
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Order everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.checkoutService()
			if err != nil {
				return err
			}
			result, err := svc.NewFlow(a.cart(cmd)).Submit(cmd.Context(), form)
			if err != nil {
				return a.formError(err)
			}
			a.printResult(result)
			return nil
		},
	}
	addFormFlags(cmd, &form)
	return cmd
}

func newBuyCmd(a *app) *cobra.Command {
	var form checkout.Form
	cmd := &cobra.Command{
		Use:   "buy <product-id>",
		Short: "Order one product right away, leaving the cart alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.catalog().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			svc, err := a.checkoutService()
			if err != nil {
				return err
			}
			result, err := svc.NewFlow(a.cart(cmd)).BuyNow(cmd.Context(), p.Candidate(), form)
			if err != nil {
				return a.formError(err)
			}
			a.printResult(result)
			return nil
		},
	}
	addFormFlags(cmd, &form)
	return cmd
}

// formError lists invalid fields one per line before failing.
func (a *app) formError(err error) error {
	var formErr *checkout.ValidationError
	if !errors.As(err, &formErr) {
		return err
	}
	names := make([]string, 0, len(formErr.Fields))
	for name := range formErr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.out, "  %s: %s\n", name, formErr.Fields[name])
	}
	return err
}

func (a *app) printResult(result *checkout.Result) {
	fmt.Fprintln(a.out, "Order placed!")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, result.Summary)
	if result.WhatsAppURL != "" {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Send it on WhatsApp:")
		fmt.Fprintln(a.out, result.WhatsAppURL)
	}
}
