package config

import (
	"reflect"
	"strings"

	"github.com/Alfresco/SearchServices-sub009/core/database"
	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/logger"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/server"
	"github.com/Alfresco/SearchServices-sub009/core/shard"
	"github.com/Alfresco/SearchServices-sub009/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the admin HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the content object store.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database is the repository of record the trackers read from.
	Database database.Config `mapstructure:"database"`
	// Index selects the index backend.
	Index index.Config `mapstructure:"index"`
	// Shard selects the shard assignment policy of the hosted core.
	Shard shard.Config `mapstructure:"shard"`
	// Tracker configures batching, hole scanning and schedules.
	Tracker reconcile.TrackerConfig `mapstructure:"tracker"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. TRACKER_BATCH_SIZE -> tracker.batch_size)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
