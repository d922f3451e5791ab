// Package config loads reducer settings from the config file and
// environment, and validates the combined result. Precedence is
// flags > env (PICIRE_*) > config file > defaults; the flag overlay
// happens in the command layer, this package supplies everything below
// it.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rhodovan/picire/internal/debug"
)

var v = viper.New()

// Init configures the package-level viper instance. configFile, when
// non-empty, is used verbatim; otherwise picire.yaml in the working
// directory is read if present.
func Init(configFile string) error {
	v = viper.New()
	v.SetEnvPrefix("PICIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
		return nil
	}

	v.SetConfigName("picire")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is worth a note
		// but not fatal: flags and env still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			debug.Logf("picire: read config file: %v\n", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parallel", false)
	v.SetDefault("jobs", 0) // 0 = CPU count, resolved in the command layer
	v.SetDefault("combine-loops", false)
	v.SetDefault("complement-first", false)
	v.SetDefault("subset-iterator", "forward")
	v.SetDefault("complement-iterator", "forward")
	v.SetDefault("split", 2)
	v.SetDefault("granularity", 0)
	v.SetDefault("cache", "config")
	v.SetDefault("cache-size", 0)
	v.SetDefault("cleanup", false)
	v.SetDefault("atom", "line")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("telemetry", false)
}

func GetBool(key string) bool              { return v.GetBool(key) }
func GetInt(key string) int                { return v.GetInt(key) }
func GetString(key string) string          { return v.GetString(key) }
func GetDuration(key string) time.Duration { return v.GetDuration(key) }
