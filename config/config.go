package config

import (
	"log"

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
	JWT struct {
		SecretKey        string `mapstructure:"secret_key"`
		AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
		RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
	} `mapstructure:"jwt"`
	Cookies struct {
		AccessName  string `mapstructure:"access_name"`
		RefreshName string `mapstructure:"refresh_name"`
		Secure      bool   `mapstructure:"secure"`
	} `mapstructure:"cookies"`
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetDefault("jwt.access_ttl_minutes", 15)
	viper.SetDefault("jwt.refresh_ttl_days", 7)
	viper.SetDefault("cookies.access_name", "jwt")
	viper.SetDefault("cookies.refresh_name", "refreshToken")
	viper.SetDefault("cookies.secure", true)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	// A missing signing key must stop the process. Falling back to a
	// baked-in constant would mean every deployment shares a known key.
	if AppConfig.JWT.SecretKey == "" {
		log.Fatal("jwt.secret_key is not set; refusing to start")
	}
}
