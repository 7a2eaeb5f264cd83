// Package sqlsink stores index documents in a SQL database through gorm.
//
// Each document is one row of index_documents with its filterable fields as
// columns and the full document as a JSON body. Commits run in a single
// database transaction together with the watermark and generation rows.
package sqlsink
