// Package testharness spawns a gate-testserver binary so tests can drive
// the gate over real HTTP, stub origin included.
package testharness

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"
)

// Config holds configuration for starting the test harness.
type Config struct {
	Secret          string // required
	ValiditySeconds int
	ListenAddr      string
	BinaryPath      string
	Quiet           bool
}

// Harness represents a running gate-testserver instance.
type Harness struct {
	BaseURL         string
	OriginURL       string
	Secret          string
	ValiditySeconds int

	// Internal state
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// outputContract matches the JSON structure from gate-testserver
type outputContract struct {
	BaseURL         string `json:"base_url"`
	OriginURL       string `json:"origin_url"`
	Secret          string `json:"secret"`
	ValiditySeconds int    `json:"validity_seconds"`
}

// Start spawns a gate-testserver and returns a handle to it.
// It registers cleanup with t.Cleanup().
func Start(t *testing.T, cfg Config) *Harness {
	t.Helper()

	if cfg.Secret == "" {
		t.Fatal("Secret is required")
	}

	// Find binary
	binaryPath := FindBinary(cfg.BinaryPath)
	if binaryPath == "" {
		t.Fatal("gate-testserver binary not found (check PATH or set Config.BinaryPath or GATE_TESTSERVER_BIN)")
	}

	// Build arguments
	args := buildArgs(cfg)

	// Create context for process lifecycle
	ctx, cancel := context.WithCancel(context.Background())

	// Start process
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stdout pipe: %v", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stderr pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		t.Fatalf("failed to start gate-testserver: %v", err)
	}

	// Read first line (JSON contract) from stdout
	scanner := bufio.NewScanner(stdout)
	if !scanner.Scan() {
		cancel()
		cmd.Wait()
		t.Fatal("failed to read JSON contract from gate-testserver")
	}

	var contract outputContract
	if err := json.Unmarshal(scanner.Bytes(), &contract); err != nil {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to parse JSON contract: %v", err)
	}

	// Stream remaining logs to test output if not quiet
	if !cfg.Quiet {
		go func() {
			for scanner.Scan() {
				t.Logf("[gate-testserver] %s", scanner.Text())
			}
		}()

		go func() {
			stderrScanner := bufio.NewScanner(stderr)
			for stderrScanner.Scan() {
				t.Logf("[gate-testserver stderr] %s", stderrScanner.Text())
			}
		}()
	}

	harness := &Harness{
		BaseURL:         contract.BaseURL,
		OriginURL:       contract.OriginURL,
		Secret:          contract.Secret,
		ValiditySeconds: contract.ValiditySeconds,
		cmd:             cmd,
		cancel:          cancel,
	}

	// Register cleanup
	t.Cleanup(func() {
		if err := harness.Close(); err != nil {
			t.Logf("warning: harness cleanup failed: %v", err)
		}
	})

	return harness
}

// Close terminates the gate-testserver process.
func (h *Harness) Close() error {
	if h.cancel != nil {
		h.cancel()
	}

	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	// Wait for graceful shutdown with timeout
	done := make(chan error, 1)
	go func() {
		done <- h.cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		// Force kill if graceful shutdown takes too long
		if err := h.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("force kill: %w", err)
		}
		return fmt.Errorf("timeout waiting for graceful shutdown, process killed")
	}
}

// FindBinary locates the gate-testserver binary: the explicit path first,
// then the GATE_TESTSERVER_BIN environment variable, then PATH. Returns
// an empty string when none is found.
func FindBinary(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	if envPath := os.Getenv("GATE_TESTSERVER_BIN"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	if pathBinary, err := exec.LookPath("gate-testserver"); err == nil {
		return pathBinary
	}

	return ""
}

func buildArgs(cfg Config) []string {
	args := []string{
		"--secret", cfg.Secret,
	}

	if cfg.ValiditySeconds > 0 {
		args = append(args, "--validity-seconds", strconv.Itoa(cfg.ValiditySeconds))
	}

	if cfg.ListenAddr != "" {
		args = append(args, "--listen", cfg.ListenAddr)
	}

	if cfg.Quiet {
		args = append(args, "--quiet")
	}

	return args
}
