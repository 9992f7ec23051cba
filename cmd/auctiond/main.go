package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "auctiond",
	Short: "auctiond - on-chain style English auction daemon",
	Long: `auctiond runs the English auction service: a bounded, rank-ordered bid
ledger with escrowed funds, gap-window timing, and a hard auction deadline,
persisted in a local pebble record store and exposed over HTTP.`,
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	viper.SetDefault("listen", ":8080")
	viper.SetDefault("data-dir", "auctiond-data")
	viper.SetDefault("cache-size", 4096)
	viper.SetDefault("ephemeral", false)

	viper.SetEnvPrefix("AUCTIOND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config %s: %v\n", configFile, err)
			os.Exit(1)
		}
	}
}
