package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Store selects the message store backend: memory or badger.
	Store      string `mapstructure:"store"`
	BadgerPath string `mapstructure:"badger_path"`

	PageSize     int    `mapstructure:"page_size"`
	EchoToSender bool   `mapstructure:"echo_to_sender"`
	UsersFile    string `mapstructure:"users_file"`

	TypingLimit  int           `mapstructure:"typing_limit"`
	TypingWindow time.Duration `mapstructure:"typing_window"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("store", "memory")
	v.SetDefault("badger_path", "./data/messages")
	v.SetDefault("page_size", 10)
	v.SetDefault("echo_to_sender", false)
	v.SetDefault("users_file", "./config/users.yaml")
	v.SetDefault("typing_limit", 8)
	v.SetDefault("typing_window", "5s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Store: %s\n", cfg.Mode, cfg.Port, cfg.Store)
	return &cfg, nil
}
