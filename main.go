package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tr4cks/firmod/controller"
	"github.com/tr4cks/firmod/modules"
	"github.com/tr4cks/firmod/modules/example"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFilePath, "config", path.Join("/etc", fmt.Sprintf("%s.d", appName), "config.yaml"), "YAML or TOML configuration file")
	rootCmd.PersistentFlags().StringVarP(&moduleName, "module", "m", "example", "module to drive")
}

const appName = "firmod"

var (
	configFilePath string
	moduleName     string
	rootCmd        = &cobra.Command{
		Use:     appName,
		Short:   "Host for firmware-style modules with an HTTP API, Discord bot and update triggers",
		Version: "1.0.0",
		Args:    cobra.NoArgs,
		RunE:    run,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

type moduleFactory func(logger zerolog.Logger) modules.Module

var internalModules = map[string]moduleFactory{
	"example": func(logger zerolog.Logger) modules.Module {
		module := &example.ExampleModule{}
		module.HandleUpdate(func(data example.Data) {
			logger.Info().
				Uint16("example_value", data.ExampleValue).
				Float32("example_rate", data.ExampleRate).
				Bool("is_enabled", data.IsEnabled).
				Msg("Module update notified")
		})
		return module
	},
}

func createModule(moduleName string, logger zerolog.Logger) (modules.Module, error) {
	factory, ok := internalModules[moduleName]
	if !ok {
		moduleNames := make([]string, 0, len(internalModules))
		for moduleName := range internalModules {
			moduleNames = append(moduleNames, moduleName)
		}
		sort.Strings(moduleNames)
		return nil, fmt.Errorf("can't find the %q module among the internal modules (available modules: %s)", moduleName, strings.Join(moduleNames, ", "))
	}

	module := factory(logger.With().Str("module", moduleName).Logger())
	err := module.Init()
	if err != nil {
		return nil, fmt.Errorf("error during module initialization: %w", err)
	}
	return module, nil
}

func run(cmd *cobra.Command, args []string) error {
	config := parseConfigFile(configFilePath)
	if config.Listen == "" {
		config.Listen = ":8080"
	}
	logger := newLogger(appName)

	module, err := createModule(moduleName, logger)
	if err != nil {
		return err
	}
	if config.Module != nil {
		err = module.Configure(config.Module)
		if err != nil {
			return fmt.Errorf("error configuring module: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := controller.New(module, logger)

	var bot *DiscordBot
	if config.Discord != nil {
		bot, err = NewDiscordBot(config.Discord, ctrl)
		if err != nil {
			return fmt.Errorf("error creating discord bot: %w", err)
		}
	}

	controllerCtx, stopController := context.WithCancel(context.Background())
	defer stopController()
	go ctrl.Run(controllerCtx)

	return serve(ctx, config, ctrl, bot)
}

// serve runs every configured surface until ctx is done or one of them fails.
// All components are built before serve is called.
func serve(ctx context.Context, config *Config, ctrl *controller.Controller, bot *DiscordBot) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return runServer(ctx, config, ctrl, newLogger("http"))
	})

	if config.Watch {
		group.Go(func() error {
			return watchConfigFile(ctx, configFilePath, ctrl, newLogger("watcher"))
		})
	}

	if config.UpdateSchedule != "" {
		group.Go(func() error {
			return runUpdateScheduler(ctx, config.UpdateSchedule, ctrl, newLogger("scheduler"))
		})
	}

	if bot != nil {
		group.Go(func() error {
			err := bot.Start()
			if err != nil {
				bot.Stop()
				return fmt.Errorf("error starting discord bot: %w", err)
			}
			<-ctx.Done()
			bot.Stop()
			return nil
		})
	}

	return group.Wait()
}

func init() {
	rootCmd.AddCommand(statusCmd, initCmd, setCmd, updateCmd)
}

// runOnce drives a freshly initialized module through op and prints the
// resulting state as JSON.
func runOnce(op func(config *Config, module modules.Module) error) error {
	config := parseConfigFile(configFilePath)
	module, err := createModule(moduleName, newLogger(appName))
	if err != nil {
		return err
	}

	err = op(config, module)
	if err != nil {
		return err
	}

	jsonString, err := json.Marshal(controller.Snapshot(module))
	if err != nil {
		return fmt.Errorf("error during JSON conversion: %w", err)
	}
	fmt.Println(string(jsonString))
	return nil
}

func configure(config *Config, module modules.Module) error {
	err := module.Configure(config.Module)
	if err != nil {
		return fmt.Errorf("error configuring module: %w", err)
	}
	return nil
}

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the module state after loading the configured parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(config *Config, module modules.Module) error {
				if config.Module == nil {
					return nil
				}
				return configure(config, module)
			})
		},
	}
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Print the module state right after initialization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(*Config, modules.Module) error { return nil })
		},
	}
	setCmd = &cobra.Command{
		Use:   "set",
		Short: "Set the module parameters from the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(configure)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Set the module parameters and notify an update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(config *Config, module modules.Module) error {
				err := configure(config, module)
				if err != nil {
					return err
				}
				module.OnUpdate()
				return nil
			})
		},
	}
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
