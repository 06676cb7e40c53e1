package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/awaistahir/powershare/internal/config"
	"github.com/awaistahir/powershare/internal/generator"
	"github.com/awaistahir/powershare/internal/metrics"
	"github.com/awaistahir/powershare/internal/resolve"
	"github.com/awaistahir/powershare/internal/store"
	"github.com/awaistahir/powershare/internal/uiapi"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var cfgFile string
	var port int
	var dbPath string

	rootCmd := &cobra.Command{
		Use:          "powershared",
		Short:        "PowerShare HTTP server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}

			logger := config.NewLogger(cfg.Logging)

			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
			st, err := store.NewStore(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			gen, err := generator.FromConfig(cfg, logger)
			if err != nil {
				return err
			}

			srv := uiapi.NewServer(st, resolve.NewEngine(gen), metrics.New(), logger, uiapi.Options{
				HouseholdA: cfg.Schedule.HouseholdA,
				HouseholdB: cfg.Schedule.HouseholdB,
				Location:   loc,
				Windows:    cfg.WindowOptions(),
			})

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			logger.WithFields(logrus.Fields{
				"addr":      addr,
				"database":  cfg.Database.Path,
				"generator": cfg.Generator.Mode,
				"timezone":  loc.String(),
			}).Info("PowerShare server starting")

			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.powershare/config.yaml)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Database path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
