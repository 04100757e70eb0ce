// Command partsbot runs the auto-parts order intake bot and its maintenance tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/partsbot/core/buildinfo"
	corecmd "github.com/m3rciful/partsbot/core/cmd"
	"github.com/m3rciful/partsbot/internal/app"
	"github.com/m3rciful/partsbot/internal/config"
)

const defaultConfigPath = "config.yaml"

type rootFlags struct {
	configPath string
	envFile    string
}

func (f *rootFlags) runnerOptions() corecmd.Options {
	return corecmd.Options{
		ConfigPath:        f.configPath,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: defaultConfigPath,
	}
}

func (f *rootFlags) resolveConfig() (string, error) {
	return corecmd.ResolveConfigPath(f.runnerOptions())
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "partsbot",
		Short:         "Telegram bot that collects auto-parts requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.LoadDotEnv(flags.envFile)
		},
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (default $CONFIG_PATH or config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newOrdersCmd(flags))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.runnerOptions()
			opts.LoadConfig = func(path string) (corecmd.ConfigCarrier, error) {
				cfg, err := config.Load(path)
				if err != nil {
					return nil, err
				}
				return cfg, nil
			}
			opts.Bootstrap = func(c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
				cfg, ok := c.(*config.Config)
				if !ok {
					return nil, fmt.Errorf("unexpected config type %T", c)
				}
				return app.Bootstrap(cfg)
			}
			return corecmd.Run(opts)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "partsbot %s\n", buildinfo.String())
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
