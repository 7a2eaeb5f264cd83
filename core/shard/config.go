package shard

// Config selects and parameterises the shard assignment policy.
type Config struct {
	// Method is one of MOD, DB_ID_RANGE, DATE, PROPERTY, EXPLICIT_ID.
	Method string `mapstructure:"method" default:"MOD"`
	// Count is the number of shard instances; 1 or less means a single unsharded index.
	Count int `mapstructure:"count" default:"1"`
	// Instance is the shard hosted by this process.
	Instance int `mapstructure:"instance" default:"0"`
	// Range overrides the DB_ID_RANGE interval of Instance, as "start-end".
	Range string `mapstructure:"range" default:""`
	// TargetSize is the width of the default DB_ID_RANGE interval.
	TargetSize int64 `mapstructure:"target_size" default:"100000000"`
	// DateProperty is the routing date for DATE.
	DateProperty string `mapstructure:"date_property" default:"cm:created"`
	// DateGrouping is the number of months per DATE bucket.
	DateGrouping int `mapstructure:"date_grouping" default:"1"`
	// Property is the routing property for PROPERTY.
	Property string `mapstructure:"property" default:""`
	// Regex optionally extracts capture group 1 of Property before hashing.
	Regex string `mapstructure:"regex" default:""`
}
