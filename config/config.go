package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Auth struct {
		TokenTTLMinutes int `mapstructure:"token_ttl_minutes"`
		Argon2          struct {
			MemoryKB    uint32 `mapstructure:"memory_kb"`
			Time        uint32 `mapstructure:"time"`
			Parallelism uint8  `mapstructure:"parallelism"`
		} `mapstructure:"argon2"`
	} `mapstructure:"auth"`
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetDefault("auth.token_ttl_minutes", 60)
	viper.SetDefault("auth.argon2.memory_kb", 64*1024)
	viper.SetDefault("auth.argon2.time", 1)
	viper.SetDefault("auth.argon2.parallelism", 4)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}

// TokenTTL returns the validity window applied to newly issued tokens.
func TokenTTL() time.Duration {
	minutes := AppConfig.Auth.TokenTTLMinutes
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}
