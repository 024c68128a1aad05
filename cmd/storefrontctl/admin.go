package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/sareesanskriti/storefront/internal/admin"
	serr "github.com/sareesanskriti/storefront/internal/errors"
	"github.com/spf13/cobra"
)

const envAdminPassword = "STOREFRONT_ADMIN_PASSWORD"

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage products and orders",
	}

	var email, password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Log in to the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(envAdminPassword)
			}
			if password == "" {
				fmt.Fprint(a.out, "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("no password given")
				}
				password = strings.TrimSpace(line)
			}
			sess, err := a.admin().Login(cmd.Context(), strings.TrimSpace(email), password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s.\n", sess.Username)
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "admin email")
	login.Flags().StringVar(&password, "password", "", "admin password (env "+envAdminPassword+", else prompted)")
	_ = login.MarkFlagRequired("email")

	logout := &cobra.Command{
		Annotations: localOnly,
		Use:         "logout",
		Short:       "Forget the stored admin session",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.admin().Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}

	status := &cobra.Command{
		Annotations: localOnly,
		Use:         "status",
		Short:       "Show whether an admin is logged in",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, ok := a.admin().Current(cmd.Context())
			switch {
			case ok:
				fmt.Fprintf(a.out, "Logged in as %s.\n", sess.Username)
			case sess.Token != "":
				fmt.Fprintln(a.out, "Session expired, log in again.")
			default:
				fmt.Fprintln(a.out, "Not logged in.")
			}
			return nil
		},
	}

	orders := &cobra.Command{
		Use:   "orders",
		Short: "List recent orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := a.admin()
			if _, ok := svc.Current(cmd.Context()); !ok {
				return fmt.Errorf("%w: run admin login first", serr.ErrUnauthorized)
			}
			list := svc.Orders(cmd.Context())
			if len(list) == 0 {
				fmt.Fprintln(a.out, "No orders.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCUSTOMER\tPHONE\tPRODUCT\tPLACED")
			for _, o := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.CustomerName, o.Phone, o.ProductName, o.CreatedAt)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(login, logout, status, orders, newAdminProductsCmd(a))
	return cmd
}

// productFlags are the editable product fields plus an optional image file.
type productFlags struct {
	name, description, fabric, category, imageURL, imageFile string
	price                                                    float64
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().Float64Var(&f.price, "price", 0, "price in rupees")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.fabric, "fabric", "", "fabric")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.imageURL, "image-url", "", "URL of an already hosted image")
	cmd.Flags().StringVar(&f.imageFile, "image", "", "image file to upload")
}

// image opens the upload. The caller closes the returned file.
func (f *productFlags) image() (*admin.Image, *os.File, error) {
	if f.imageFile == "" {
		return nil, nil, nil
	}
	file, err := os.Open(f.imageFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	return &admin.Image{Filename: filepath.Base(f.imageFile), Data: file}, file, nil
}

func newAdminProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Create, update and delete products",
	}

	var createFlags productFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := admin.ProductInput{
				Name:        createFlags.name,
				Price:       createFlags.price,
				Description: createFlags.description,
				Fabric:      createFlags.fabric,
				Category:    createFlags.category,
			}
			if createFlags.imageURL != "" {
				in.ImageURLs = []string{createFlags.imageURL}
			}
			img, file, err := createFlags.image()
			if err != nil {
				return err
			}
			if file != nil {
				defer file.Close()
			}
			p, err := a.admin().CreateProduct(cmd.Context(), in, img)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s (%s).\n", p.Name, p.ID)
			return nil
		},
	}
	createFlags.register(create)
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("price")

	var updateFlags productFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch admin.ProductPatch
			changed := cmd.Flags().Changed
			if changed("name") {
				patch.Name = &updateFlags.name
			}
			if changed("price") {
				patch.Price = &updateFlags.price
			}
			if changed("description") {
				patch.Description = &updateFlags.description
			}
			if changed("fabric") {
				patch.Fabric = &updateFlags.fabric
			}
			if changed("category") {
				patch.Category = &updateFlags.category
			}
			if changed("image-url") {
				patch.ImageURLs = []string{updateFlags.imageURL}
			}
			img, file, err := updateFlags.image()
			if err != nil {
				return err
			}
			if file != nil {
				defer file.Close()
			}
			if _, err := a.admin().UpdateProduct(cmd.Context(), args[0], patch, img); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s.\n", args[0])
			return nil
		},
	}
	updateFlags.register(update)

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			if err := a.admin().DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s.\n", args[0])
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")

	cmd.AddCommand(create, update, del)
	return cmd
}
