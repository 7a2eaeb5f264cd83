package database

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// GetTableColumns retrieves the column definitions for a table, lower-cased.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo

	if db.Dialector.Name() == DriverSQLite {
		type sqliteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string `gorm:"column:dflt_value"`
			Pk         int
		}
		var rows []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range rows {
			columns = append(columns, ColumnInfo{
				Field:   strings.ToLower(col.Name),
				Type:    strings.ToLower(col.Type),
				Default: col.DefaultVal,
			})
		}
		return columns, nil
	}

	if err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// MissingColumns reports which of the expected columns are absent from each table.
// A table that does not exist reports all of its expected columns. The result only
// contains tables with at least one missing column.
func MissingColumns(db *gorm.DB, expected map[string][]string) (map[string][]string, error) {
	missing := make(map[string][]string)
	for table, want := range expected {
		cols, err := GetTableColumns(db, table)
		if err != nil {
			return nil, err
		}
		have := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			have[c.Field] = struct{}{}
		}
		for _, w := range want {
			if _, ok := have[strings.ToLower(w)]; !ok {
				missing[table] = append(missing[table], w)
			}
		}
		sort.Strings(missing[table])
		if len(missing[table]) == 0 {
			delete(missing, table)
		}
	}
	return missing, nil
}
