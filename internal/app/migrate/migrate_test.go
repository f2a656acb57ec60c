package migrate

import (
	"path/filepath"
	"testing"
)

func TestNewRejectsMissingInputs(t *testing.T) {
	if _, err := New(nil, "db/migrations", nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}

func TestMigrationFileIsAnnotated(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("..", "..", "..", "db", "migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migrations found")
	}
}
