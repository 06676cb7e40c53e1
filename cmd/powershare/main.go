package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/awaistahir/powershare/internal/config"
	"github.com/awaistahir/powershare/internal/engine"
	"github.com/awaistahir/powershare/internal/generator"
	"github.com/awaistahir/powershare/internal/resolve"
	"github.com/awaistahir/powershare/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
	cfg     *config.Config
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "powershare",
		Short: "PowerShare - Keep two households' heavy appliances off the same time slots",
		Long: `PowerShare keeps the weekly appliance schedules of two households that
share one electrical supply, finds slots where both would draw power at
once, and suggests alternative windows.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			logger = config.NewLogger(cfg.Logging)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.powershare/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.powershare/powershare.db)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(intervalCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(resolveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return store.NewStore(cfg.Database.Path)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func initCmd() *cobra.Command {
	var nameA, nameB string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Register the two households sharing the supply",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			for _, h := range []store.Household{
				{ID: cfg.Schedule.HouseholdA, Name: nameA},
				{ID: cfg.Schedule.HouseholdB, Name: nameB},
			} {
				h := h
				if err := st.SaveHousehold(&h); err != nil {
					return err
				}
			}

			fmt.Println("✓ Initialized households")
			fmt.Printf("  A: %s (%s)\n", cfg.Schedule.HouseholdA, nameA)
			fmt.Printf("  B: %s (%s)\n", cfg.Schedule.HouseholdB, nameB)
			fmt.Printf("Database: %s\n", cfg.Database.Path)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Add intervals: powershare interval add")
			fmt.Println("  2. Check for conflicts: powershare detect")

			return nil
		},
	}

	cmd.Flags().StringVar(&nameA, "name-a", "Household A", "Display name of the first household")
	cmd.Flags().StringVar(&nameB, "name-b", "Household B", "Display name of the second household")

	return cmd
}

func intervalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interval",
		Short: "Manage scheduled appliance intervals",
	}

	cmd.AddCommand(intervalAddCmd())
	cmd.AddCommand(intervalListCmd())
	cmd.AddCommand(intervalDeleteCmd())

	return cmd
}

func intervalAddCmd() *cobra.Command {
	var household, appliance, day, start, end, owner, description string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule a new appliance interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			interval := &engine.Interval{
				ApplianceType: engine.ApplianceType(appliance),
				DayOfWeek:     engine.Weekday(day),
				StartTime:     start,
				EndTime:       end,
				HouseholdID:   household,
				OwnerID:       owner,
				Description:   description,
			}
			if err := interval.Validate(); err != nil {
				return err
			}
			if err := engine.CheckCreatable(interval.DayOfWeek, time.Now().In(loc)); err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.CreateInterval(interval); err != nil {
				return err
			}

			fmt.Printf("✓ Added %s on %s %s-%s\n", interval.ApplianceType, interval.DayOfWeek, interval.StartTime, interval.EndTime)
			fmt.Printf("  ID: %s\n", interval.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&household, "household", "", "Household ID (required)")
	cmd.Flags().StringVarP(&appliance, "appliance", "a", "", "Appliance: car-charger, oven, washing-machine, dryer, dishwasher")
	cmd.Flags().StringVarP(&day, "day", "d", "", "Day of week, e.g. Monday")
	cmd.Flags().StringVarP(&start, "start", "s", "", "Start time (HH:MM)")
	cmd.Flags().StringVarP(&end, "end", "e", "", "End time (HH:MM)")
	cmd.Flags().StringVar(&owner, "owner", "", "User creating the interval")
	cmd.Flags().StringVar(&description, "description", "", "Optional note")

	for _, name := range []string{"household", "appliance", "day", "start", "end"} {
		cmd.MarkFlagRequired(name)
	}

	return cmd
}

func intervalListCmd() *cobra.Command {
	var household string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a household's intervals",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ids := []string{cfg.Schedule.HouseholdA, cfg.Schedule.HouseholdB}
			if household != "" {
				ids = []string{household}
			}

			fmt.Printf("%-12s %-10s %-16s %-12s %-36s\n", "HOUSEHOLD", "DAY", "APPLIANCE", "WINDOW", "ID")
			fmt.Println("------------------------------------------------------------------------------------------")

			for _, id := range ids {
				intervals, err := st.ListIntervals(id)
				if err != nil {
					return err
				}
				for _, iv := range intervals {
					fmt.Printf("%-12s %-10s %-16s %-12s %-36s\n",
						iv.HouseholdID, iv.DayOfWeek, iv.ApplianceType, iv.StartTime+"-"+iv.EndTime, iv.ID)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&household, "household", "", "Household ID (default: both configured households)")

	return cmd
}

func intervalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteInterval(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted interval %s\n", args[0])
			return nil
		},
	}
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Find overlapping appliance usage between the two households",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			scheduleA, scheduleB, err := resolve.LoadSchedules(st, cfg.Schedule.HouseholdA, cfg.Schedule.HouseholdB)
			if err != nil {
				return err
			}

			analysis, err := engine.Analyze(scheduleA, scheduleB, cfg.WindowOptions())
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stderr, analysis.Summary)
			return printJSON(analysis)
		},
	}
}

func resolveCmd() *cobra.Command {
	var history, preferences string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Ask the generation service for a verdict and suggested changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			scheduleA, scheduleB, err := resolve.LoadSchedules(st, cfg.Schedule.HouseholdA, cfg.Schedule.HouseholdB)
			if err != nil {
				return err
			}

			gen, err := generator.FromConfig(cfg, logger)
			if err != nil {
				return err
			}

			report, err := resolve.NewEngine(gen).Resolve(context.Background(), scheduleA, scheduleB, history, preferences)
			if err != nil {
				return err
			}

			check := resolve.CompareWithDetector(report, engine.Detect(scheduleA, scheduleB))
			if !check.Agrees {
				logger.WithFields(logrus.Fields{
					"service_verdict":      report.ConflictsDetected,
					"mechanical_conflicts": check.MechanicalConflicts,
				}).Warn("generation service verdict differs from detected overlaps")
			}

			return printJSON(report)
		},
	}

	cmd.Flags().StringVar(&history, "history", "", "Free-text usage history passed to the service")
	cmd.Flags().StringVar(&preferences, "preferences", "", "Free-text household preferences passed to the service")

	return cmd
}
