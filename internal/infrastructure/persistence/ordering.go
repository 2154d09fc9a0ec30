package persistence

import "strings"

// billOrderColumns are the columns a bill listing may be ordered by
var billOrderColumns = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"bill_number":  true,
	"issue_date":   true,
	"due_date":     true,
	"total_amount": true,
	"paid_amount":  true,
	"status":       true,
}

// orderClause turns caller-supplied ordering into "column DIR". Unknown columns
// fall back to fallback and anything but asc sorts descending. The id tiebreak
// keeps pages stable when the column has duplicates.
func orderClause(column, dir string, allowed map[string]bool, fallback string) string {
	column = strings.TrimSpace(column)
	if !allowed[column] {
		column = fallback
	}
	d := "DESC"
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		d = "ASC"
	}
	return column + " " + d + ", id " + d
}
