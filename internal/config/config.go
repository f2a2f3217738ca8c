package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	PrivateKey   string
	ChainID      uint64
	Listen       string
	PGDSN        string
	AuditOut     string
	Quoter       string
	Router       string
	NativeSymbol string
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("listen", "")
	v.SetDefault("quoter", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("router", "0xE592427A0AEce92De3Edee1F18E0157C05861564")
	v.SetDefault("native-symbol", "ETH")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:       v.GetString("rpc"),
		PrivateKey:   v.GetString("private-key"),
		ChainID:      v.GetUint64("chain-id"),
		Listen:       v.GetString("listen"),
		PGDSN:        v.GetString("pg-dsn"),
		AuditOut:     v.GetString("audit-out"),
		Quoter:       v.GetString("quoter"),
		Router:       v.GetString("router"),
		NativeSymbol: v.GetString("native-symbol"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
