package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name   string
		column string
		dir    string
		want   string
	}{
		{"defaults", "", "", "created_at DESC, id DESC"},
		{"allowed column ascending", "due_date", "asc", "due_date ASC, id ASC"},
		{"direction is case and space insensitive", " total_amount ", "  ASC ", "total_amount ASC, id ASC"},
		{"unknown column falls back", "tenant_id", "asc", "created_at ASC, id ASC"},
		{"injection in column", "status; DROP TABLE bills;--", "desc", "created_at DESC, id DESC"},
		{"injection in direction", "status", "ASC; DROP TABLE bills;--", "status DESC, id DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.column, tt.dir, billOrderColumns, "created_at"))
		})
	}
}
