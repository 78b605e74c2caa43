// pkg/resolve/tables_test.go
package resolve

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRef(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadTablesDirMergesBundles(t *testing.T) {
	dir := t.TempDir()
	writeRef(t, dir, "alabama.yaml", `
parents:
  ALABAMA: "01"
children:
  ALABAMA:
    AUTAUGA: "001"
sentinels:
  - STATEWIDE
`)
	writeRef(t, dir, "louisiana.yaml", `
parents:
  LOUISIANA: "22"
children:
  LOUISIANA:
    ORLEANS: "071"
sentinels:
  - STATEWIDE
`)
	writeRef(t, dir, "notes.txt", "ignored")

	tables, err := LoadTablesDir(dir)
	if err != nil {
		t.Fatalf("LoadTablesDir: %v", err)
	}

	if tables.Parents["ALABAMA"] != "01" || tables.Parents["LOUISIANA"] != "22" {
		t.Errorf("parents not merged: %v", tables.Parents)
	}
	if tables.Children["LOUISIANA"]["ORLEANS"] != "071" {
		t.Errorf("children not merged: %v", tables.Children)
	}
	if len(tables.Sentinels) != 1 {
		t.Errorf("sentinels not deduplicated: %v", tables.Sentinels)
	}
}

func TestLoadTablesDirRejectsConflicts(t *testing.T) {
	dir := t.TempDir()
	writeRef(t, dir, "a.yaml", `
parents:
  ALABAMA: "01"
children:
  ALABAMA:
    AUTAUGA: "001"
`)
	writeRef(t, dir, "b.yaml", `
parents:
  ALABAMA: "99"
children:
  ALABAMA:
    BALDWIN: "003"
`)

	if _, err := LoadTablesDir(dir); err == nil {
		t.Error("conflicting parent codes accepted")
	}
}

func TestLoadTablesDirRequiresYAML(t *testing.T) {
	dir := t.TempDir()
	writeRef(t, dir, "readme.md", "no reference data here")
	if _, err := LoadTablesDir(dir); err == nil {
		t.Error("directory without YAML accepted")
	}
}

func TestLoadTablesAppliesDefaultSuffixes(t *testing.T) {
	tables := loadTestTables(t)
	found := false
	for _, s := range tables.Suffixes {
		if s == "PARISH" {
			found = true
		}
	}
	if !found {
		t.Errorf("default suffixes not applied: %v", tables.Suffixes)
	}
}
