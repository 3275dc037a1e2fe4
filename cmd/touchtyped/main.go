package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goggybox/touchtypEd/internal/config"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "touchtyped",
		Short:        "Camera guide for resting your hands on the home keys",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file with environment overrides")

	run := newRunCmd(flags)
	root.AddCommand(run, newProfilesCmd(flags), newConfigCmd(flags))
	// Running the binary without a subcommand starts the guide.
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	return root
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath, flags.envFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

// ensureDir creates the parent directory of a file path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
