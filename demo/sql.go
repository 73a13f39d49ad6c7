package demo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/user/mcp-go-demo/capability"
)

// maxQueryOutput caps the text returned by query_sql.
const maxQueryOutput = 4000

// SQLDescriptors describes read-only tools over db: list_tables,
// get_table_schema and query_sql.
func SQLDescriptors(db *sql.DB) []capability.Descriptor {
	return []capability.Descriptor{
		{
			Name:        "list_tables",
			Kind:        capability.KindTool,
			Description: "Return all table names in the database separated by comma",
			Category:    "database",
			Tags:        []string{"sql", "tables", "schema", "database"},
			Cacheable:   true,
			CacheTTL:    600 * time.Second,
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				tables, err := listTables(ctx, db)
				if err != nil {
					return nil, err
				}
				return capability.TextResponse(strings.Join(tables, ",")), nil
			}),
		},
		{
			Name:        "get_table_schema",
			Kind:        capability.KindTool,
			Description: "Return the columns of a table with their type and constraints, one per line",
			Category:    "database",
			Tags:        []string{"sql", "schema", "table", "database", "structure"},
			Shape: capability.Shape{
				{Name: "table_name", Type: capability.String, Description: "table to describe", MinLength: 1},
			},
			Cacheable: true,
			CacheTTL:  1800 * time.Second,
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				table, _ := req.Params["table_name"].(string)
				columns, err := tableSchema(ctx, db, table)
				if err != nil {
					return nil, err
				}
				return capability.TextResponse(strings.Join(columns, "\n")), nil
			}),
		},
		{
			Name:        "query_sql",
			Kind:        capability.KindTool,
			Description: "Execute a single SELECT statement and return the rows as text, truncated after 4000 characters",
			Category:    "database",
			Tags:        []string{"sql", "query", "database"},
			Shape: capability.Shape{
				{Name: "sql", Type: capability.String, Description: "SELECT statement", MinLength: 1},
			},
			Timeout: 30 * time.Second,
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				query, _ := req.Params["sql"].(string)
				out, err := querySelect(ctx, db, query)
				if err != nil {
					return nil, err
				}
				return capability.TextResponse(out), nil
			}),
		},
	}
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func tableSchema(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	tables, err := listTables(ctx, db)
	if err != nil {
		return nil, err
	}
	known := false
	for _, name := range tables {
		if name == table {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown table: %s", table)
	}

	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		line := name + " " + typ
		if pk > 0 {
			line += " PRIMARY KEY"
		}
		if notNull == 1 {
			line += " NOT NULL"
		}
		if dflt.Valid {
			line += " DEFAULT " + dflt.String
		}
		columns = append(columns, line)
	}
	return columns, rows.Err()
}

// querySelect runs one SELECT inside a transaction that is always rolled
// back.
func querySelect(ctx context.Context, db *sql.DB, query string) (string, error) {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	if !strings.HasPrefix(strings.ToLower(query), "select") {
		return "", fmt.Errorf("only SELECT queries are allowed")
	}
	if strings.Contains(query, ";") {
		return "", fmt.Errorf("only a single statement is allowed")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin query: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("failed to read columns: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(columns, " | "))
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("failed to scan row: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = formatCell(v)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, " | "))
		if b.Len() > maxQueryOutput {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating rows: %w", err)
	}

	out := b.String()
	if len(out) > maxQueryOutput {
		out = out[:maxQueryOutput] + "\n... (truncated)"
	}
	return out, nil
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case float64:
		return FormatNumber(v)
	default:
		return fmt.Sprint(v)
	}
}
