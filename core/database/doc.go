// Package database opens gorm connections and inspects schemas.
//
// Two databases go through this package: the repository of record, which the
// SQL change source reads transactions, nodes and ACLs from, and, when the index
// driver is "sql", the database backing the index sink itself.
//
// # Connect
//
// Connect supports the mysql driver for production deployments and sqlite for
// local runs and tests. Connection setup is bounded by TimeoutSeconds and verified
// with a ping before the handle is returned.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns let the SQL change source verify, at startup,
// that the repository exposes every column it selects from.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, map[string][]string{"alf_node": {"id", "uuid"}})
package database
