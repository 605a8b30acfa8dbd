// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pfallmann/loantrack/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for loantrack.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Loans   []Loan        `yaml:"loans,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// ServerConfig holds HTTP API configuration options
type ServerConfig struct {
	Address           string  `yaml:"address,omitempty"`
	DatabasePath      string  `yaml:"databasePath,omitempty"`
	ScheduleCacheTTL  int     `yaml:"scheduleCacheTtl,omitempty"` // seconds
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
	RequestBurst      int     `yaml:"requestBurst,omitempty"`
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A local .env file, when present, is loaded into the
// environment first so viper's AutomaticEnv can pick the values up.
func LoadConfiguration(configPath string) (*Configuration, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file, %s", err)
		}
	}

	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.applyDefaults()
	return &configuration, nil
}

func (conf *Configuration) applyDefaults() {
	if conf.Server.Address == "" {
		conf.Server.Address = constants.DefaultServerAddress
	}
	if conf.Server.DatabasePath == "" {
		conf.Server.DatabasePath = constants.DefaultDatabasePath
	}
	if conf.Server.ScheduleCacheTTL <= 0 {
		conf.Server.ScheduleCacheTTL = constants.DefaultScheduleCacheTTLSeconds
	}
	if conf.Server.RequestsPerSecond <= 0 {
		conf.Server.RequestsPerSecond = constants.DefaultRequestsPerSecond
	}
	if conf.Server.RequestBurst <= 0 {
		conf.Server.RequestBurst = constants.DefaultRequestBurst
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}
}
