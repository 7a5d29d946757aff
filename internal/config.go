package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type TinyDBConfig struct {
	Storage struct {
		File           string `mapstructure:"file"`
		BufferPoolSize int    `mapstructure:"buffer_pool_size"`
	} `mapstructure:"storage"`
	Checkpoint struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
	} `mapstructure:"checkpoint"`
	Debug bool `mapstructure:"debug"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() *TinyDBConfig {
	var cfg TinyDBConfig
	cfg.Storage.File = "tinydb.db"
	cfg.Storage.BufferPoolSize = 256
	cfg.Checkpoint.IntervalSeconds = 60
	return &cfg
}

func LoadConfig(path string) (*TinyDBConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("storage.file", "tinydb.db")
	v.SetDefault("storage.buffer_pool_size", 256)
	v.SetDefault("checkpoint.interval_seconds", 60)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg TinyDBConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
