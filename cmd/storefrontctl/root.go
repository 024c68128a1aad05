package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sareesanskriti/storefront/internal/admin"
	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/sareesanskriti/storefront/internal/catalog"
	"github.com/sareesanskriti/storefront/internal/kv"
	"github.com/sareesanskriti/storefront/pkg/bootstrap"
	"github.com/sareesanskriti/storefront/pkg/config"
	"github.com/sareesanskriti/storefront/pkg/httpclient"
	"github.com/spf13/cobra"
)

const (
	envAPI = "STOREFRONT_API_BASEURL"
	envDB  = "STOREFRONT_CTL_DB"
)

// app is the state shared by every subcommand for one invocation.
type app struct {
	apiURL        string
	dbPath        string
	timeout       time.Duration
	whatsAppPhone string
	logLevel      string

	out    io.Writer
	logger *slog.Logger
	slot   *kv.SQLiteSlot
	http   *http.Client
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Shop the saree catalog from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd, errOut)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api", os.Getenv(envAPI), "base URL of the storefront API (env "+envAPI+")")
	flags.StringVar(&a.dbPath, "db", os.Getenv(envDB), "local state file (env "+envDB+")")
	flags.DurationVar(&a.timeout, "timeout", 15*time.Second, "timeout for one API call")
	flags.StringVar(&a.whatsAppPhone, "whatsapp", "919599819939", "WhatsApp number that receives order summaries")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		newProductsCmd(a),
		newCartCmd(a),
		newCheckoutCmd(a),
		newBuyCmd(a),
		newAdminCmd(a),
		newHealthCmd(a),
	)
	return root
}

const annotationLocal = "local"

// localOnly marks commands that work on the state file alone.
var localOnly = map[string]string{annotationLocal: "true"}

func isLocal(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationLocal] == "true"
}

func (a *app) open(cmd *cobra.Command, errOut io.Writer) error {
	if a.apiURL == "" && !isLocal(cmd) {
		return fmt.Errorf("no API configured: pass --api or set %s", envAPI)
	}
	a.apiURL = strings.TrimRight(a.apiURL, "/")
	if a.dbPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to locate config dir, pass --db: %w", err)
		}
		a.dbPath = filepath.Join(dir, "storefront", "state.db")
	}
	if err := os.MkdirAll(filepath.Dir(a.dbPath), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	a.logger = bootstrap.NewLoggerTo(errOut, a.logLevel)
	slot, err := kv.OpenSQLiteSlot(cmd.Context(), a.dbPath)
	if err != nil {
		return err
	}
	a.slot = slot
	a.http = httpclient.New(httpclient.Options{
		Name:       "storefrontctl",
		Timeout:    a.timeout,
		Resilience: config.DefaultResilience(),
	})
	return nil
}

func (a *app) close() error {
	if a.slot == nil {
		return nil
	}
	err := a.slot.Close()
	a.slot = nil
	return err
}

func (a *app) catalog() *catalog.Client {
	return catalog.NewClient(a.apiURL, a.http, a.logger)
}

// cart mounts the locally persisted cart.
func (a *app) cart(cmd *cobra.Command) *cart.Provider {
	store := cart.NewStore(a.slot, cart.DefaultKey, cart.WithLogger(a.logger))
	p := cart.NewProvider(cart.NewEngine(store))
	p.Mount(cmd.Context())
	return p
}

func (a *app) admin() *admin.Service {
	return admin.NewService(
		admin.NewClient(a.apiURL, a.http, a.logger),
		admin.NewSessionStore(a.slot, a.logger),
	)
}
