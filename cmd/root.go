package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/iocache"
	"github.com/huangsam/vitals/internal/runlock"
	"github.com/huangsam/vitals/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profile holds profiling configuration.
var profile = &contract.ProfileConfig{}

// storeManager is the global persistence manager instance.
var storeManager contract.StoreManager

// locker serializes runs of the same client.
var locker contract.Locker

// startProfiling starts CPU and memory profiling if enabled.
func startProfiling() error {
	if !profile.Enabled {
		return nil
	}

	cpuFile, err := os.Create(profile.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	contract.LogInfo("Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof", profile.Prefix, profile.Prefix)
	return nil
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if !profile.Enabled {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profile.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	contract.LogInfo("Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.", profile.Prefix)
	return nil
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "vitals",
	Short:              "Turn health exports into per-client analytics for coaching.",
	Long:               `Vitals reads a client's health export, derives daily metrics against their targets and caches one analytics table per client.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("VITALS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("store-backend", schema.SQLiteBackend)
	viper.SetDefault("store-db-connect", "")
	viper.SetDefault("s3-prefix", contract.DefaultS3Prefix)
	viper.SetDefault("lock-backend", schema.LocalLock)
	viper.SetDefault("lock-ttl", contract.DefaultLockTTL.String())
	viper.SetDefault("artifact-format", schema.CSVArtifact)
	viper.SetDefault("window-days", contract.DefaultWindowDays)
	viper.SetDefault("dedup-exact", true)
}

// setConfigFile points Viper at the --config file or the default .vitals.yaml locations.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".vitals") // Name of config file (without extension)
	viper.SetConfigType("yaml")    // We'll use YAML format
	viper.AddConfigPath(".")       // Look in the current directory
	viper.AddConfigPath("$HOME")   // Look in the home directory
}

// loadConfig merges defaults, file, env and flags, then validates them into cfg.
// It does not open any store.
func loadConfig() error {
	// 1. Read config file. A missing file is fine; we'll use defaults/env/flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	return contract.ProcessAndValidate(cfg, input)
}

// sharedSetup validates config, opens the stores and creates the run lock.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	if err := contract.ProcessProfilingConfig(profile, viper.GetString("profile")); err != nil {
		return fmt.Errorf("failed to process profiling config: %w", err)
	}
	if profile.Enabled {
		if err := startProfiling(); err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
	}

	if err := loadConfig(); err != nil {
		return err
	}

	if err := iocache.InitStores(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	l, err := runlock.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize run lock: %w", err)
	}
	locker = l
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configSetupWrapper validates config without opening stores. Commands that
// delete or migrate a database use it so nothing holds the database open.
func configSetupWrapper(_ *cobra.Command, _ []string) error {
	return loadConfig()
}

// dataStore returns the configured client store or an error naming the setting to change.
func dataStore() (contract.DataStore, error) {
	store := storeManager.GetDataStore()
	if store == nil || cfg.StoreBackend == schema.NoneBackend {
		return nil, fmt.Errorf("no client store configured. Set --store-backend to sqlite, mysql or postgresql")
	}
	return store, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetStoreManager sets the global store manager.
func SetStoreManager(mgr contract.StoreManager) {
	storeManager = mgr
}

// Shutdown releases the run lock backend and stops profiling if enabled.
func Shutdown() error {
	if locker != nil {
		if err := locker.Close(); err != nil {
			contract.LogWarn("Cannot close run lock", err)
		}
	}
	return stopProfiling()
}
