package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/partsbot/internal/orders"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// seededConfig writes a config pointing at a JSON store with two orders.
func seededConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	storePath := filepath.Join(dir, "orders.json")
	store, err := orders.OpenFile(storePath)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	for _, o := range []orders.Order{
		{RequestID: "a1b2c3d4", CustomerID: 1001, Car: "Toyota Camry", Parts: "brake\npads", PhotoOrVIN: orders.Unspecified(), City: "Simferopol", Status: orders.StatusNew, CreatedAt: at},
		{RequestID: "e5f6a7b8", CustomerID: 1001, Car: "Lada", Parts: "filter", PhotoOrVIN: orders.TextAttachment("XTA"), City: "Yalta", Status: orders.StatusInProgress, CreatedAt: at, ClaimedBy: 42, ClaimedAt: at},
	} {
		if err := store.Append(context.Background(), o); err != nil {
			t.Fatal(err)
		}
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "storage:\n  driver: file\n  path: " + storePath + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "partsbot dev") {
		t.Errorf("output = %q", out)
	}
}

func TestOrdersList(t *testing.T) {
	cfg := seededConfig(t)
	out, err := run(t, "--config", cfg, "--env-file", filepath.Join(t.TempDir(), "none.env"), "orders", "list", "1001")
	if err != nil {
		t.Fatalf("orders list: %v", err)
	}
	for _, want := range []string{"ID", "a1b2c3d4", "e5f6a7b8", "brake pads", "InProgress", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "--config", cfg, "orders", "list", "7")
	if err != nil || !strings.Contains(out, "no orders") {
		t.Errorf("unknown customer: %q, %v", out, err)
	}
}

func TestOrdersListRejectsBadID(t *testing.T) {
	if _, err := run(t, "--config", seededConfig(t), "orders", "list", "abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestOrdersExport(t *testing.T) {
	cfg := seededConfig(t)
	dest := filepath.Join(t.TempDir(), "export.json")
	if _, err := run(t, "--config", cfg, "orders", "export", "--out", dest); err != nil {
		t.Fatalf("orders export: %v", err)
	}
	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	snap, err := orders.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Count() != 2 || snap[1001][1].ClaimedBy != 42 {
		t.Errorf("exported snapshot = %+v", snap)
	}
}

func TestOrdersListLeavesCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "orders.json")
	if err := os.WriteFile(storePath, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "storage:\n  driver: file\n  path: " + storePath + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", cfgPath, "orders", "list", "1001"); err == nil {
		t.Error("expected an error for a corrupt document")
	}
	if _, err := os.Stat(storePath); err != nil {
		t.Errorf("document moved: %v", err)
	}
	if matches, _ := filepath.Glob(storePath + ".corrupt-*"); len(matches) != 0 {
		t.Errorf("quarantined files = %v", matches)
	}
}

func TestRootHasCommands(t *testing.T) {
	want := map[string]bool{"run": false, "orders": false, "version": false}
	for _, c := range newRootCmd().Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
