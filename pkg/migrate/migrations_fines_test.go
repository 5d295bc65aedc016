package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFinesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_fines_and_disputes.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no fines migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS fines",
		"ux_fines_booking_late",
		"CREATE TABLE IF NOT EXISTS disputes",
		"ux_disputes_fine_open",
		"WHERE status IN ('open', 'in_review')",
		"DROP TABLE IF EXISTS disputes",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
