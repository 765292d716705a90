package helpers

import (
	"database/sql"
	"fmt"
	"testing"
)

// DataValidator provides utilities for validating a SQLite database in tests
type DataValidator struct {
	t  *testing.T
	db *sql.DB
}

// NewDataValidator creates a new data validator
func NewDataValidator(t *testing.T, db *sql.DB) *DataValidator {
	return &DataValidator{
		t:  t,
		db: db,
	}
}

// ValidateRowCount checks if the table has the expected number of rows
func (dv *DataValidator) ValidateRowCount(tableName string, expectedCount int) {
	dv.t.Helper()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)
	var actualCount int
	err := dv.db.QueryRow(query).Scan(&actualCount)
	if err != nil {
		dv.t.Fatalf("Failed to count rows in table %s: %v", tableName, err)
	}

	if actualCount != expectedCount {
		dv.t.Errorf("Row count mismatch in table %s: expected %d, got %d",
			tableName, expectedCount, actualCount)
	}
}

// ValidateObjectExists checks if a table, index or trigger exists
func (dv *DataValidator) ValidateObjectExists(objectType, name string) {
	dv.t.Helper()

	if !dv.objectExists(objectType, name) {
		dv.t.Errorf("%s %s does not exist", objectType, name)
	}
}

// ValidateObjectNotExists checks if a table, index or trigger does not exist
func (dv *DataValidator) ValidateObjectNotExists(objectType, name string) {
	dv.t.Helper()

	if dv.objectExists(objectType, name) {
		dv.t.Errorf("%s %s exists but should not", objectType, name)
	}
}

func (dv *DataValidator) objectExists(objectType, name string) bool {
	dv.t.Helper()

	var count int
	err := dv.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?`, objectType, name).Scan(&count)
	if err != nil {
		dv.t.Fatalf("Failed to check %s existence for %s: %v", objectType, name, err)
	}
	return count > 0
}

// ValidateFTSIntegrity runs the FTS5 integrity check, which fails when an
// external content index disagrees with its content table
func (dv *DataValidator) ValidateFTSIntegrity(ftsTable string) {
	dv.t.Helper()

	query := fmt.Sprintf("INSERT INTO %s(%s, rank) VALUES('integrity-check', 1)", ftsTable, ftsTable)
	if _, err := dv.db.Exec(query); err != nil {
		dv.t.Errorf("Full-text index %s is inconsistent: %v", ftsTable, err)
	}
}

// ValidateFTSRowCount checks how many rows the full-text index holds
func (dv *DataValidator) ValidateFTSRowCount(ftsTable string, expectedCount int) {
	dv.t.Helper()

	dv.ValidateRowCount(ftsTable+"_docsize", expectedCount)
}

// ValidateMatch checks how many indexed rows a full-text query finds
func (dv *DataValidator) ValidateMatch(ftsTable, query string, expectedCount int) {
	dv.t.Helper()

	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s MATCH ?", ftsTable, ftsTable)
	var actualCount int
	if err := dv.db.QueryRow(stmt, query).Scan(&actualCount); err != nil {
		dv.t.Fatalf("Failed to run full-text query %q on %s: %v", query, ftsTable, err)
	}

	if actualCount != expectedCount {
		dv.t.Errorf("Match count mismatch for %q in %s: expected %d, got %d",
			query, ftsTable, expectedCount, actualCount)
	}
}

// ValidateNullCount checks how many rows hold NULL in columnName
func (dv *DataValidator) ValidateNullCount(tableName, columnName string, expectedCount int) {
	dv.t.Helper()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", tableName, columnName)
	var actualCount int
	if err := dv.db.QueryRow(query).Scan(&actualCount); err != nil {
		dv.t.Fatalf("Failed to count NULLs in %s.%s: %v", tableName, columnName, err)
	}

	if actualCount != expectedCount {
		dv.t.Errorf("NULL count mismatch in %s.%s: expected %d, got %d",
			tableName, columnName, expectedCount, actualCount)
	}
}

// ValidateRecordValue checks the value of one column for the row whose model matches
func (dv *DataValidator) ValidateRecordValue(tableName, model, column string, expected sql.NullString) {
	dv.t.Helper()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE model = ?", column, tableName)
	var actual sql.NullString
	if err := dv.db.QueryRow(query, model).Scan(&actual); err != nil {
		dv.t.Fatalf("Failed to read %s.%s for model %s: %v", tableName, column, model, err)
	}

	if actual != expected {
		dv.t.Errorf("Value mismatch in %s.%s for model %s: expected %+v, got %+v",
			tableName, column, model, expected, actual)
	}
}
