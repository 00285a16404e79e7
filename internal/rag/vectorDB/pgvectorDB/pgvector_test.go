package pgvectorDB

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestCreateTableSQL(t *testing.T) {
	stmt := createTableSQL(pgx.Identifier{"passages_ab12"}.Sanitize(), 512)

	for _, want := range []string{`CREATE TABLE "passages_ab12"`, "embedding vector(512)", "id text PRIMARY KEY"} {
		if !strings.Contains(stmt, want) {
			t.Errorf("expected %q in %s", want, stmt)
		}
	}
}

func TestNew_QuotesTableName(t *testing.T) {
	db := New(nil, `weird"name`).(*pgvectorDB)
	if db.table != `"weird""name"` {
		t.Errorf("table = %s", db.table)
	}
}
