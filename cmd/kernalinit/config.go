// Config loading for the kernalinit CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys. Durations accept Go syntax ("30s", "2m").
	cfgKeyDataDir      = "data_dir"
	cfgKeyReportDir    = "report_dir"
	cfgKeySyslogPath   = "syslog_path"
	cfgKeyTaskDir      = "task_dir"
	cfgKeyTagLocations = "tag_locations"
	cfgKeyLoopMin      = "loop_min_interval"
	cfgKeyLoopMax      = "loop_max_interval"
	cfgKeyStopGrace    = "stop_grace"
	cfgKeyLogLevel     = "log_level"
)

// cfgFile is the loaded config.yaml, set by PersistentPreRunE.
var cfgFile *viper.Viper

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Kernalinit configuration

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Host locations (optional; defaults live under the data directory)
# report_dir:
# syslog_path:
# task_dir:
# tag_locations: []

# Background loop timing
loop_min_interval: 30s
loop_max_interval: 2m
stop_grace: 5s

# Logging
log_level: info
`

// loadConfigFile reads config.yaml from the resolved config directory
// using Viper. It creates the config directory and a default config.yaml
// on first run. A missing config.yaml is not an error.
func loadConfigFile(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		// File already exists.
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// buildConfig assembles the runtime Config from the resolved data
// directory and the loaded config.yaml, then fills defaults and
// validates.
func buildConfig() (types.Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{DataDir: dataDir}
	if cfgFile != nil {
		cfg.ReportDir = cfgFile.GetString(cfgKeyReportDir)
		cfg.SyslogPath = cfgFile.GetString(cfgKeySyslogPath)
		cfg.TaskDir = cfgFile.GetString(cfgKeyTaskDir)
		cfg.TagLocations = cfgFile.GetStringSlice(cfgKeyTagLocations)
		cfg.LoopMinInterval = cfgFile.GetDuration(cfgKeyLoopMin)
		cfg.LoopMaxInterval = cfgFile.GetDuration(cfgKeyLoopMax)
		cfg.StopGrace = cfgFile.GetDuration(cfgKeyStopGrace)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// logLevel returns the effective log level: flag over config.yaml.
func logLevel() string {
	if flagLogLevel != "" {
		return flagLogLevel
	}
	if cfgFile != nil {
		return cfgFile.GetString(cfgKeyLogLevel)
	}
	return "info"
}
