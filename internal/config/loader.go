package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/javagraph/javagraph/internal/engerr"
)

// configName is the config file name without extension.
const configName = ".javagraph"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for javagraph settings.
const envPrefix = "JAVAGRAPH"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads Options from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used. projectRoot, when
// non-empty, overrides any project_root value read from file/env (it is
// the CLI's positional argument and always wins).
func LoadConfig(configPath, projectRoot string) (*Options, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if projectRoot != "" {
		viperCfg.Set("project_root", projectRoot)
	}

	var opts Options

	unmarshalErr := viperCfg.Unmarshal(&opts)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := opts.Validate()
	if validateErr != nil {
		return nil, engerr.NewConfigurationError("validate config", validateErr)
	}

	return &opts, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("max_passes", DefaultMaxPasses)
	viperCfg.SetDefault("parallelism", defaultParallelism())
	viperCfg.SetDefault("per_inspector_timeout", DefaultPerInspectorTimeout)
	viperCfg.SetDefault("ignore_patterns", []string{})
	viperCfg.SetDefault("jar_paths", []string{})

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.enabled", false)
	viperCfg.SetDefault("telemetry.service_name", DefaultTelemetryServiceName)

	viperCfg.SetDefault("output.dir", ".analysis")
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
}
