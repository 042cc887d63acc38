package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	want := []string{"serve", "find", "context", "migrate", "seed", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "tattva dev") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSeedAndFind_EndToEnd(t *testing.T) {
	dsn := "file:" + t.TempDir() + "/e2e.db?_foreign_keys=on&_busy_timeout=5000"
	t.Setenv("TATTVA_DB_DSN", dsn)
	t.Setenv("TATTVA_CACHE_TYPE", "memory")
	t.Setenv("TATTVA_BUS_TYPE", "memory")

	run := func(args ...string) string {
		t.Helper()
		root := rootCmd()
		var out, errOut bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&errOut)
		root.SetArgs(args)
		if err := root.Execute(); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, errOut.String())
		}
		return out.String()
	}

	run("seed", "--species", "4", "--sightings", "200", "--seed", "7")

	found := run("find")
	if !strings.Contains(found, `"variable": "sea_surface_temp_c"`) {
		t.Errorf("find output = %s", found)
	}
	if !strings.Contains(found, `"species_name": "Indian oil sardine"`) {
		t.Errorf("find output lacks species name: %s", found)
	}

	snapshot := run("context", "--lat", "9.9", "--lon", "76.2", "--radius-km", "100", "--limit", "2")
	for _, key := range []string{`"top_species"`, `"env_summary"`, `"x_factor"`} {
		if !strings.Contains(snapshot, key) {
			t.Errorf("context output lacks %s: %s", key, snapshot)
		}
	}
}
