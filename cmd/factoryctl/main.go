// Command factoryctl is the offline toolbox for factory worlds: it checks
// config directories, inspects and moves saves, replays tick logs and runs
// headless layouts.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "factoryctl",
		Short:         "Offline tools for factory worlds",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("configs", "./configs", "config directory; missing catalog files fall back to the built-in defaults")
	root.PersistentFlags().String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")

	root.AddCommand(validateCmd())
	root.AddCommand(inspectCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(simulateCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(dbCmd())
	return root
}

// loadConfig resolves catalogs and tuning the same way the server does.
func loadConfig(cmd *cobra.Command) (*catalogs.Catalogs, tuning.Tuning, error) {
	configDir, _ := cmd.Flags().GetString("configs")
	tuningPath, _ := cmd.Flags().GetString("tuning")

	cats, err := catalogs.Load(configDir)
	if err != nil {
		return nil, tuning.Tuning{}, fmt.Errorf("load catalogs: %w", err)
	}
	tp := strings.TrimSpace(tuningPath)
	if tp == "" {
		tp = filepath.Join(configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, tuning.Tuning{}, fmt.Errorf("load tuning: %w", err)
		}
		tune = tuning.Defaults()
	}
	return cats, tune, nil
}
