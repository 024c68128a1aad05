package main

import (
	"fmt"

	"github.com/sareesanskriti/storefront/pkg/config"
	"github.com/sareesanskriti/storefront/pkg/grpcclient"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// newHealthCmd probes the storefront gRPC health endpoint. It needs neither the
// API nor the local state file.
func newHealthCmd(a *app) *cobra.Command {
	var target, service string
	cmd := &cobra.Command{
		Use:                "health",
		Short:              "Check that a storefront server is serving",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpcclient.New(target, grpcclient.Options{
				Name:       "storefrontctl-health",
				Timeout:    a.timeout,
				Resilience: config.DefaultResilience(),
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			st, err := grpcclient.CheckHealth(cmd.Context(), conn, service)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			fmt.Fprintln(a.out, st.String())
			if st != grpc_health_v1.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", target, st)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "grpc", "localhost:9090", "address of the gRPC health endpoint")
	cmd.Flags().StringVar(&service, "service", "", "service name, empty for the whole server")
	return cmd
}
