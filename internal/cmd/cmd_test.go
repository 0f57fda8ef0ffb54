package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pizzas-pos/internal/models"
	"pizzas-pos/internal/services/syncer"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommand(t *testing.T) {
	want := []string{"migrate", "seed", "watch", "notify"}
	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			found := false
			for _, c := range rootCmd.Commands() {
				if c.Name() == name {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("subcommand %q not registered", name)
			}
		})
	}

	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag not registered")
	}
}

func TestSeedCommand_MemoryStore(t *testing.T) {
	cfg := writeConfig(t, "store:\n  backend: memory\nsession:\n  timezone: UTC\nlogging:\n  level: error\n")

	out, err := executeCommand(rootCmd, "seed", "--config", cfg, "../../catalog.yaml")
	if err != nil {
		t.Fatalf("seed failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "6 added, 0 updated") {
		t.Errorf("output = %q", out)
	}
}

func TestSeedCommand_InvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "store:\n  backend: sqlite\n")

	if _, err := executeCommand(rootCmd, "seed", "--config", cfg, "../../catalog.yaml"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestNotifyCommand_RequiresBroker(t *testing.T) {
	cfg := writeConfig(t, "session:\n  timezone: UTC\nlogging:\n  level: error\n")

	_, err := executeCommand(rootCmd, "notify", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "rabbitmq.host") {
		t.Errorf("error = %v, want missing broker", err)
	}
}

func TestPrintState(t *testing.T) {
	order := models.Order{
		ID:          "a1",
		Code:        "K7PX2M",
		Status:      models.StatusPreparing,
		TotalUnits:  3,
		TotalAmount: decimal.RequireFromString("27.5"),
		CreatedAt:   time.Date(2026, 3, 10, 20, 15, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	printState(&buf, syncer.State{Active: []models.Order{order}, Selected: &order, Remote: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if lines[0] != "remote: 1 active orders" {
		t.Errorf("header = %q", lines[0])
	}
	for _, part := range []string{"> K7PX2M", "Preparing", "27.50", "20:15"} {
		if !strings.Contains(lines[1], part) {
			t.Errorf("row %q missing %q", lines[1], part)
		}
	}
}
