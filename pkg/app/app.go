package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/airlink-io/airlink/pkg/log"
)

// Options abstracts the flag/config surface of a command so App can compose,
// load and validate it uniformly.
type Options interface {
	// AddFlags registers the option group's flags on the command's FlagSet.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills in any derived or defaulted fields after parsing.
	Complete() error

	// Validate checks the final option values.
	Validate() error
}

// RunFunc is the command's main entry point; ctx is cancelled on SIGINT/SIGTERM.
type RunFunc func(ctx context.Context) error

// App assembles a CLI application from a name, options and a run function.
type App struct {
	name        string
	short       string
	description string
	opts        Options
	run         RunFunc

	cmd *cobra.Command
}

// Option configures an App during construction.
type Option func(*App)

// WithDescription sets the long description shown in help output.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions binds an option group to the application command line.
func WithOptions(opts Options) Option {
	return func(a *App) {
		a.opts = opts
	}
}

// WithRunFunc sets the application's entry point.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.run = run
	}
}

// NewApp creates an App with the given name and mounts the standard flags
// (--config) alongside the application's own option groups.
func NewApp(name, short string, options ...Option) *App {
	a := &App{
		name:  name,
		short: short,
	}

	for _, opt := range options {
		opt(a)
	}

	a.buildCommand()

	return a
}

func (a *App) buildCommand() {
	var configFile string

	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.short,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.opts != nil {
				if err := a.loadConfig(cmd, configFile); err != nil {
					return err
				}
				if err := a.opts.Complete(); err != nil {
					return err
				}
				if err := a.opts.Validate(); err != nil {
					return err
				}
			}

			if a.run == nil {
				return nil
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return a.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file.")

	if a.opts != nil {
		a.opts.AddFlags(cmd.Flags())
	}

	a.cmd = cmd
}

// loadConfig merges an optional config file under the parsed flags. Flags
// changed on the command line keep priority because they are bound to viper
// before the file is unmarshalled.
func (a *App) loadConfig(cmd *cobra.Command, configFile string) error {
	if configFile == "" {
		return nil
	}

	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", configFile, err)
	}

	if err := v.Unmarshal(a.opts); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// Command exposes the underlying cobra command, mainly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the application and exits the process on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		log.Error(err, "Application terminated")
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.name, err)
		os.Exit(1)
	}
}
