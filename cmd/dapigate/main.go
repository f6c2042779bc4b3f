package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dapigate/internal/config"
	"dapigate/internal/endpoint"
	"dapigate/internal/logging"
	"dapigate/internal/metrics"
	"dapigate/internal/prober"
	"dapigate/internal/provider"
	"dapigate/internal/selector"
)

var (
	networkName string
	configPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dapigate",
		Short: "dapigate - DAPI endpoint discovery and selection",
		Long:  `dapigate discovers candidate DAPI endpoints for a network, probes their health, and picks the ones a wallet should talk to.`,
	}

	rootCmd.PersistentFlags().StringVar(&networkName, "network", "mainnet", "Network: mainnet, testnet or devnet")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to yaml config file")

	rootCmd.AddCommand(endpointsCmd())
	rootCmd.AddCommand(bestCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildSelector() (*selector.Selector, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	network, err := endpoint.ParseNetwork(networkName)
	if err != nil {
		return nil, nil, err
	}

	source := provider.DefaultSource(network)
	nc := cfg.Network(network.String())
	switch {
	case nc.ConfigURL != "":
		source = provider.RemoteSource(nc.ConfigURL)
	case nc.Resource != "":
		source = provider.LocalResourceSource(nc.Resource)
	case nc.EnvVar != "":
		source = provider.EnvironmentSource(nc.EnvVar)
	}

	prov := provider.New(network, source, &provider.Config{
		TTL: cfg.Cache.ConfigTTL,
	})
	prob := prober.New(&prober.Config{
		Timeout:     cfg.Probe.Timeout,
		Concurrency: cfg.Probe.Concurrency,
		HealthTTL:   cfg.Cache.HealthTTL,
	})
	return selector.New(network, prov, prob), cfg, nil
}

func endpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "Print the ranked healthy endpoints for the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, _, err := buildSelector()
			if err != nil {
				return err
			}
			result := sel.Select(cmd.Context())
			fmt.Printf("tier: %s\n", result.Tier)
			for _, ep := range result.Endpoints {
				fmt.Println(ep)
			}
			return nil
		},
	}
}

func bestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "best",
		Short: "Print the single best endpoint for the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, _, err := buildSelector()
			if err != nil {
				return err
			}
			best, ok := sel.BestEndpoint(cmd.Context())
			if !ok {
				return fmt.Errorf("no endpoint available for %s", sel.Network())
			}
			fmt.Println(best)
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Probe every configured and fallback endpoint and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, _, err := buildSelector()
			if err != nil {
				return err
			}
			fmt.Print(sel.Report(cmd.Context()).Summary())
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically probe endpoints and serve prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, cfg, err := buildSelector()
			if err != nil {
				return err
			}

			metrics.Init()

			addr := cfg.MetricsAddress
			if addr == "" {
				addr = ":9465"
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			srv := &http.Server{Addr: addr, Handler: mux}

			go func() {
				log.Info().Str("address", addr).Msg("metrics listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("metrics server error")
				}
			}()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			fmt.Print(sel.Report(cmd.Context()).Summary())
			for {
				select {
				case <-ticker.C:
					sel.Refresh()
					fmt.Print(sel.Report(cmd.Context()).Summary())
				case <-stop:
					log.Info().Msg("shutting down")
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(ctx)
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Probe interval")
	return cmd
}
