package main

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Full-text synchronization modes for Schema.FTSSync
const (
	// FTSSyncTrigger keeps the full-text index current through an AFTER INSERT
	// trigger, so later direct inserts are indexed too.
	FTSSyncTrigger = "trigger"
	// FTSSyncBulk copies the base table into the full-text index once, after
	// all inserts. For targets without trigger support.
	FTSSyncBulk = "bulk"
)

// ftsColumns are the columns searchable through the full-text index
var ftsColumns = []string{"model", "code", "code_alias", "model_name", "brand"}

// indexedColumns get a secondary index for grouped aggregate queries
var indexedColumns = []string{"brand", "dtype"}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema names the artifacts of one rebuild
type Schema struct {
	Table    string // Base table
	FTSTable string // External-content FTS5 table over Table
	FTSSync  string // FTSSyncTrigger or FTSSyncBulk
}

// DefaultSchema returns the phone_models layout
func DefaultSchema() Schema {
	return Schema{
		Table:    "phone_models",
		FTSTable: "phone_models_fts",
		FTSSync:  FTSSyncTrigger,
	}
}

// TriggerName is the name of the insert trigger feeding the full-text index
func (s Schema) TriggerName() string { return s.Table + "_ai" }

// IndexName is the name of the secondary index over column
func (s Schema) IndexName(column string) string {
	return fmt.Sprintf("idx_%s_%s", s.Table, column)
}

// Validate checks that every name is a plain SQL identifier
func (s Schema) Validate() error {
	if !identifierPattern.MatchString(s.Table) {
		return fmt.Errorf("invalid table name '%s'", s.Table)
	}
	if !identifierPattern.MatchString(s.FTSTable) {
		return fmt.Errorf("invalid full-text table name '%s'", s.FTSTable)
	}
	if s.Table == s.FTSTable {
		return fmt.Errorf("full-text table must differ from table '%s'", s.Table)
	}
	if s.FTSSync != FTSSyncTrigger && s.FTSSync != FTSSyncBulk {
		return fmt.Errorf("ftsSync must be either '%s' or '%s'", FTSSyncTrigger, FTSSyncBulk)
	}
	return nil
}

// SchemaStatements returns the drop and create statements that precede the
// row inserts. Derived artifacts are dropped before the base table.
func SchemaStatements(s Schema) []string {
	columnDefs := make([]string, len(ModelColumns))
	for i, col := range ModelColumns {
		columnDefs[i] = col + " TEXT"
	}

	stmts := []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s;", s.TriggerName()),
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", s.FTSTable),
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", s.Table),
		fmt.Sprintf("CREATE TABLE %s (%s);", s.Table, strings.Join(columnDefs, ", ")),
	}
	for _, col := range indexedColumns {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s(%s);", s.IndexName(col), s.Table, col))
	}
	stmts = append(stmts, fmt.Sprintf(
		"CREATE VIRTUAL TABLE %s USING fts5(%s, content='%s', content_rowid='rowid');",
		s.FTSTable, strings.Join(ftsColumns, ", "), s.Table))

	if s.FTSSync == FTSSyncTrigger {
		newCols := make([]string, len(ftsColumns))
		for i, col := range ftsColumns {
			newCols[i] = "new." + col
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE TRIGGER %s AFTER INSERT ON %s BEGIN\n  INSERT INTO %s(rowid, %s)\n  VALUES (new.rowid, %s);\nEND;",
			s.TriggerName(), s.Table, s.FTSTable, strings.Join(ftsColumns, ", "), strings.Join(newCols, ", ")))
	}
	return stmts
}

// GenerateStatements returns the full rebuild sequence for models: schema
// statements, one INSERT per row in source order, and for FTSSyncBulk a final
// copy into the full-text index.
func GenerateStatements(models []PhoneModel, s Schema) []string {
	schema := SchemaStatements(s)
	stmts := make([]string, 0, len(schema)+len(models)+1)
	stmts = append(stmts, schema...)

	for _, m := range models {
		stmts = append(stmts, InsertStatement(s.Table, m))
	}

	if s.FTSSync == FTSSyncBulk {
		cols := strings.Join(ftsColumns, ", ")
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s(rowid, %s) SELECT rowid, %s FROM %s;",
			s.FTSTable, cols, cols, s.Table))
	}
	return stmts
}

// InsertStatement renders one row as a literal INSERT
func InsertStatement(table string, m PhoneModel) string {
	values := m.Values()
	literals := make([]string, len(values))
	for i, v := range values {
		literals[i] = QuoteLiteral(v)
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s);", table, strings.Join(literals, ", "))
}

// QuoteLiteral renders v as a SQL string literal with single quotes doubled,
// or NULL when v is not valid.
func QuoteLiteral(v sql.NullString) string {
	if !v.Valid {
		return "NULL"
	}
	return "'" + strings.ReplaceAll(v.String, "'", "''") + "'"
}

// UnquoteLiteral reverses QuoteLiteral
func UnquoteLiteral(lit string) (sql.NullString, error) {
	if lit == "NULL" {
		return sql.NullString{}, nil
	}
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return sql.NullString{}, fmt.Errorf("not a string literal: %s", lit)
	}
	body := lit[1 : len(lit)-1]
	if strings.Contains(strings.ReplaceAll(body, "''", ""), "'") {
		return sql.NullString{}, fmt.Errorf("unescaped quote in literal: %s", lit)
	}
	return sql.NullString{String: strings.ReplaceAll(body, "''", "'"), Valid: true}, nil
}
