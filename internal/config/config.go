package config

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	Port        string `mapstructure:"PORT"`
	GinMode     string `mapstructure:"GIN_MODE"`
	LogJSON     bool   `mapstructure:"LOG_JSON"`
	LogDebug    bool   `mapstructure:"LOG_DEBUG"`

	// TagsLinkTable names the table holding taggable-to-tag links.
	TagsLinkTable string `mapstructure:"TAGS_LINK_TABLE"`
}

var AppConfig *Config

// LoadConfig loads the configuration from a .env file and environment variables.
// A missing .env file is not an error.
func LoadConfig() error {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	// Defaults also register the keys so AutomaticEnv can resolve them.
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("LOG_DEBUG", false)
	v.SetDefault("TAGS_LINK_TABLE", "taggables")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "read .env")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return errors.Wrap(err, "unable to decode config")
	}
	AppConfig = cfg
	return nil
}
