package index

import "github.com/Alfresco/SearchServices-sub009/core/database"

// Config selects the index backend.
type Config struct {
	// Driver is sql, pebble or memory.
	Driver string `mapstructure:"driver" default:"pebble"`
	// Path is the pebble data directory.
	Path string `mapstructure:"path" default:"data/index"`
	// Database is the connection used by the sql driver.
	Database database.Config `mapstructure:"database"`
}

const (
	DriverSQL    = "sql"
	DriverPebble = "pebble"
	DriverMemory = "memory"
)
