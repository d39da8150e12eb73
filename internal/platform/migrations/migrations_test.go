package migrations

import "testing"

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected at least one embedded migration file")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case len(name) > len(".up.sql") && name[len(name)-len(".up.sql"):] == ".up.sql":
			ups[name[:len(name)-len(".up.sql")]] = true
		case len(name) > len(".down.sql") && name[len(name)-len(".down.sql"):] == ".down.sql":
			downs[name[:len(name)-len(".down.sql")]] = true
		default:
			t.Fatalf("unexpected migration file name %q", name)
		}
	}

	for version := range ups {
		if !downs[version] {
			t.Fatalf("migration %q has an up file but no matching down file", version)
		}
	}
	for version := range downs {
		if !ups[version] {
			t.Fatalf("migration %q has a down file but no matching up file", version)
		}
	}
}
