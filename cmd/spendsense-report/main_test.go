package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateOutput_ExclusiveKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SpendSense_Report_2024-03.pdf")
	if err := os.WriteFile(path, []byte("earlier report"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, name, err := createOutput(path, true)
	if err != nil {
		t.Fatalf("createOutput() error = %v", err)
	}
	f.Close()

	if want := filepath.Join(dir, "SpendSense_Report_2024-03-1.pdf"); name != want {
		t.Errorf("name = %s, want %s", name, want)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "earlier report" {
		t.Errorf("existing file changed: %q, %v", got, err)
	}
}

func TestCreateOutput_ExclusiveUsesFreeName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SpendSense_Report_2024-03.xlsx")

	f, name, err := createOutput(path, true)
	if err != nil {
		t.Fatalf("createOutput() error = %v", err)
	}
	f.Close()
	if name != path {
		t.Errorf("name = %s, want %s", name, path)
	}
}

func TestCreateOutput_ExplicitPathOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, name, err := createOutput(path, false)
	if err != nil {
		t.Fatalf("createOutput() error = %v", err)
	}
	f.Close()
	if name != path {
		t.Errorf("name = %s, want %s", name, path)
	}
	if info, err := os.Stat(path); err != nil || info.Size() != 0 {
		t.Errorf("explicit output should be truncated: %v, %v", info, err)
	}
}
