package app

import (
	"fmt"
	"strings"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
)

// schemaText renders introspected columns for a prompt, in physical order.
func schemaText(table string, columns []domain.Column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\nColumns:\n", table)
	for _, col := range columns {
		fmt.Fprintf(&b, "  %s %s\n", col.Name, col.Type)
	}
	return b.String()
}

// resultText renders a query result for a prompt, truncated to maxRows.
// The total row count is always stated so truncation is visible to the model.
func resultText(result domain.QueryResult, maxRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(result.Columns, ", "))
	fmt.Fprintf(&b, "Total rows: %d\n", len(result.Rows))
	rows := result.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "  %s\n", strings.Join(row, " | "))
	}
	return b.String()
}
