package database

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"sqlite ok", Config{Driver: DriverSQLite, Path: "orders.db"}, false},
		{"sqlite no path", Config{Driver: DriverSQLite}, true},
		{"postgres ok", Config{Driver: DriverPostgres, Host: "db", Name: "parts"}, false},
		{"postgres no host", Config{Driver: DriverPostgres, Name: "parts"}, true},
		{"unknown", Config{Driver: "mysql"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMigrateURL(t *testing.T) {
	pg := Config{Driver: DriverPostgres, Host: "db", User: "bot", Password: "p@ss", Name: "parts"}
	got := pg.MigrateURL()
	if !strings.HasPrefix(got, "postgres://bot:p%40ss@db:5432/parts") {
		t.Errorf("postgres url = %q", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Errorf("postgres url missing default sslmode: %q", got)
	}

	lite := Config{Driver: DriverSQLite, Path: "/tmp/orders.db"}
	if got := lite.MigrateURL(); got != "sqlite:///tmp/orders.db" {
		t.Errorf("sqlite url = %q", got)
	}
	if got := lite.DSN(); got != "/tmp/orders.db" {
		t.Errorf("sqlite dsn = %q", got)
	}
}

func TestListMigrationFiles(t *testing.T) {
	src := fstest.MapFS{
		"0002_b.up.sql":   {Data: []byte("select 1;")},
		"0001_a.up.sql":   {Data: []byte("select 1;")},
		"0001_a.down.sql": {Data: []byte("select 1;")},
	}
	got := listMigrationFiles(src)
	if strings.Join(got, ",") != "0001_a.up.sql,0002_b.up.sql" {
		t.Fatalf("files = %v", got)
	}
	if applied := selectApplied(got, 1, 2); len(applied) != 1 || applied[0] != "0002_b.up.sql" {
		t.Errorf("applied = %v", applied)
	}
	if s := summarize([]string{"a", "b", "c"}, 2); s != "a,b,+1" {
		t.Errorf("summarize = %q", s)
	}
}
