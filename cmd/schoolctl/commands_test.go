package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandsAgainstSQLite(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:"+filepath.Join(t.TempDir(), "ctl.db"))
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "migrate")
	if err != nil || !strings.Contains(out, "migrations applied") {
		t.Fatalf("migrate: %v %q", err, out)
	}

	if _, err := run(t, "add", "albion.edu"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := run(t, "add", "albion.edu"); err == nil {
		t.Error("duplicate add succeeded")
	}

	out, err = run(t, "list")
	if err != nil || !strings.Contains(out, "albion.edu") || !strings.Contains(out, "Albion") {
		t.Errorf("list: %v %q", err, out)
	}

	out, err = run(t, "sources")
	if err != nil || !strings.Contains(out, "orders     unavailable") {
		t.Errorf("sources: %v %q", err, out)
	}

	out, err = run(t, "refresh", "--all")
	if err != nil || !strings.Contains(out, "albion.edu") {
		t.Errorf("refresh --all: %v %q", err, out)
	}

	out, err = run(t, "delete", "albion.edu")
	if err != nil || !strings.Contains(out, "deleted albion.edu") {
		t.Errorf("delete: %v %q", err, out)
	}
}

func TestRefreshArgs(t *testing.T) {
	if _, err := run(t, "refresh"); err == nil {
		t.Error("refresh without domain succeeded")
	}
	if _, err := run(t, "refresh", "--all", "albion.edu"); err == nil {
		t.Error("refresh --all with domain succeeded")
	}
}
