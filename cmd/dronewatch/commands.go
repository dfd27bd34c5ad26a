package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/five82/dronewatch/internal/app"
	"github.com/five82/dronewatch/internal/config"
	"github.com/five82/dronewatch/internal/drone"
	"github.com/five82/dronewatch/internal/filter"
	"github.com/five82/dronewatch/internal/logtail"
	"github.com/five82/dronewatch/internal/repository"
	"github.com/five82/dronewatch/internal/version"
)

// maxCollectPages bounds --all walks.
const maxCollectPages = 100

type rootFlags struct {
	configPath string
	debug      bool
	logFile    string
}

func (f *rootFlags) options() app.Options {
	return app.Options{ConfigPath: f.configPath, Debug: f.debug, LogFile: f.logFile}
}

type pageFlags struct {
	limit  int
	offset int
	all    bool
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.limit, "limit", 0, "records per request (default page_limit from config)")
	cmd.Flags().IntVar(&p.offset, "offset", 0, "records to skip")
	cmd.Flags().BoolVar(&p.all, "all", false, "walk every page instead of fetching one")
}

func (p *pageFlags) resolvedLimit(cfg config.Config) int {
	if p.limit > 0 {
		return p.limit
	}
	return cfg.PageLimit
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var refreshEvery time.Duration

	watch := func(cmd *cobra.Command, _ []string) error {
		opts := flags.options()
		opts.RefreshEvery = refreshEvery
		return app.Run(cmd.Context(), opts)
	}

	root := &cobra.Command{
		Use:           "dronewatch",
		Short:         "Watch a drone telemetry API from the terminal",
		Long:          "dronewatch lists drones, drone types and telemetry from a drone simulation API.\nWithout a subcommand it opens the live terminal view.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          watch,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/dronewatch/config.toml)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "write logs to this file")
	root.Flags().DurationVar(&refreshEvery, "refresh", 0, "refresh interval (default refresh_interval from config)")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the live terminal view",
		Args:  cobra.NoArgs,
		RunE:  watch,
	}
	watchCmd.Flags().DurationVar(&refreshEvery, "refresh", 0, "refresh interval (default refresh_interval from config)")

	root.AddCommand(
		watchCmd,
		newDronesCmd(flags),
		newTypesCmd(flags),
		newDynamicsCmd(flags),
		newDroneCmd(flags),
		newLogsCmd(flags),
		newVersionCmd(),
	)
	return root
}

// withServices runs fn with wired services and closes them afterwards.
func withServices(flags *rootFlags, fn func(svc *app.Services) error) error {
	svc, err := app.Setup(flags.options())
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func newDronesCmd(flags *rootFlags) *cobra.Command {
	var (
		page         pageFlags
		crit         filter.DroneCriteria
		createdAfter string
	)
	cmd := &cobra.Command{
		Use:   "drones",
		Short: "List drones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if createdAfter != "" {
				t := drone.ParseTime(createdAfter)
				if t.IsZero() {
					return fmt.Errorf("invalid --created-after %q", createdAfter)
				}
				crit.CreatedAfter = t
			}
			f, err := crit.Build()
			if err != nil {
				return err
			}
			return withServices(flags, func(svc *app.Services) error {
				drones, err := fetchMap(cmd.Context(), svc, drone.DroneParser{}, page)
				if err != nil {
					return err
				}
				printDrones(cmd.OutOrStdout(), filter.ApplyMap(f, drones))
				return nil
			})
		},
	}
	page.register(cmd)
	cmd.Flags().StringVar(&crit.SerialGlob, "serial", "", "serial number glob, case-insensitive")
	cmd.Flags().StringVar(&crit.CarriageType, "carriage", "", "carriage type code (NOT, ACT, SEN)")
	cmd.Flags().IntVar(&crit.MinCarriageWeight, "min-weight", 0, "minimum carriage weight")
	cmd.Flags().IntVar(&crit.MaxCarriageWeight, "max-weight", 0, "maximum carriage weight (0 = no limit)")
	cmd.Flags().Int64Var(&crit.DroneTypeID, "type", 0, "drone type id")
	cmd.Flags().StringVar(&createdAfter, "created-after", "", "only drones created after this date")
	return cmd
}

func newTypesCmd(flags *rootFlags) *cobra.Command {
	var (
		page pageFlags
		crit filter.TypeCriteria
	)
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List drone types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := crit.Build()
			if err != nil {
				return err
			}
			return withServices(flags, func(svc *app.Services) error {
				types, err := fetchMap(cmd.Context(), svc, drone.DroneTypeParser{}, page)
				if err != nil {
					return err
				}
				printTypes(cmd.OutOrStdout(), filter.ApplyMap(f, types))
				return nil
			})
		},
	}
	page.register(cmd)
	cmd.Flags().StringVar(&crit.ManufacturerGlob, "manufacturer", "", "manufacturer glob, case-insensitive")
	cmd.Flags().IntVar(&crit.MinMaxSpeed, "min-speed", 0, "minimum top speed")
	cmd.Flags().IntVar(&crit.MinMaxCarriage, "min-carriage", 0, "minimum carriage capacity")
	return cmd
}

func newDynamicsCmd(flags *rootFlags) *cobra.Command {
	var (
		page      pageFlags
		crit      filter.DynamicsCriteria
		seenSince string
		latest    bool
	)
	cmd := &cobra.Command{
		Use:   "dynamics [drone-id]",
		Short: "List telemetry samples, optionally for one drone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var droneID int64
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				droneID = id
			}
			if seenSince != "" {
				t := drone.ParseTime(seenSince)
				if t.IsZero() {
					return fmt.Errorf("invalid --seen-since %q", seenSince)
				}
				crit.SeenSince = t
			}
			f := crit.Build()
			return withServices(flags, func(svc *app.Services) error {
				limit := page.resolvedLimit(svc.Config)
				var (
					samples []drone.Dynamics
					err     error
				)
				if droneID > 0 {
					samples, err = svc.Repo.DynamicsFor(cmd.Context(), droneID, limit, page.offset)
				} else {
					samples, err = svc.Repo.Dynamics(cmd.Context(), limit, page.offset)
				}
				if err != nil {
					return err
				}
				samples = f.Apply(samples)
				if latest {
					samples = latestSamples(samples)
				}
				printDynamics(cmd.OutOrStdout(), samples)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page.limit, "limit", 0, "records per request (default page_limit from config)")
	cmd.Flags().IntVar(&page.offset, "offset", 0, "records to skip")
	cmd.Flags().StringVar(&crit.Status, "status", "", "status code (ON, OF, IS)")
	cmd.Flags().IntVar(&crit.MinBattery, "min-battery", 0, "minimum battery percentage")
	cmd.Flags().IntVar(&crit.MinSpeed, "min-speed", 0, "minimum speed")
	cmd.Flags().IntVar(&crit.MaxSpeed, "max-speed", 0, "maximum speed (0 = no limit)")
	cmd.Flags().StringVar(&seenSince, "seen-since", "", "only samples seen at or after this time")
	cmd.Flags().BoolVar(&latest, "latest", false, "keep only the newest sample per drone")
	return cmd
}

func newDroneCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "drone <id>",
		Short: "Show one drone with its type and newest telemetry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(flags, func(svc *app.Services) error {
				ctx := cmd.Context()
				d, err := svc.Repo.DroneByID(ctx, id)
				if err != nil {
					return err
				}
				detail := droneDetail{Drone: d}
				t, err := svc.Repo.DroneTypeByID(ctx, d.DroneTypeID)
				if err != nil {
					svc.Logger.Debug("drone type lookup failed", zap.Int64("type_id", d.DroneTypeID), zap.Error(err))
				} else {
					detail.Type, detail.HasType = t, true
				}
				samples, err := repository.FetchTail(ctx, svc.Repo, drone.DynamicsParser{Path: repository.DynamicsPath(id)}, svc.Config.PageLimit)
				if err != nil {
					return err
				}
				if s, ok := drone.LatestByDrone(samples)[id]; ok {
					detail.Dynamics, detail.HasDynamics = s, true
				}
				printDroneDetail(cmd.OutOrStdout(), detail)
				return nil
			})
		},
	}
}

func newLogsCmd(flags *rootFlags) *cobra.Command {
	var (
		query   logtail.Query
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the dronewatch log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := cfg.LogFile
			if flags.logFile != "" {
				path = flags.logFile
			}
			entries, err := logtail.Tail(path, query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range logtail.Format(entries, !noColor) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&query.Lines, "lines", "n", 50, "number of entries (0 = all)")
	cmd.Flags().StringVar(&query.MinLevel, "level", "", "minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&query.Logger, "logger", "", "only entries from loggers with this name prefix")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func fetchMap[T drone.Entity](ctx context.Context, svc *app.Services, p drone.Parser[T], page pageFlags) (map[int64]T, error) {
	limit := page.resolvedLimit(svc.Config)
	if page.all {
		return repository.CollectMap(ctx, svc.Repo, p, limit, maxCollectPages)
	}
	return repository.FetchMap(ctx, svc.Repo, p, limit, page.offset)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
