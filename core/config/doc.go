// Package config loads the tracker service configuration.
//
// Values come from struct tag defaults, an optional .env file and the
// environment, in increasing precedence. Keys are nested by section and map to
// environment variables with dots replaced by underscores, so tracker.batch_size
// is read from TRACKER_BATCH_SIZE and index.database.driver from
// INDEX_DATABASE_DRIVER.
//
// # Configuration Structure
//
//   - Server: admin port, API key and replication role
//   - Log: level and encoding
//   - Database: repository of record
//   - Storage: MinIO bucket caching extracted content
//   - Index: sql, pebble or memory backend
//   - Shard: assignment method, instance and method parameters
//   - Tracker: core name, batch size, hole scan, rate limit and cron schedules
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Shard.Method)
package config
