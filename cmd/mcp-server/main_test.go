package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	"mcp-servicenow/pkg/config"
)

// isolateEnv clears every setting for the duration of the test
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvServiceNowInstance, config.EnvServiceNowUsername, config.EnvServiceNowPassword,
		config.EnvServiceNowTimeout, config.EnvGeminiAPIKey, config.EnvGeminiModel,
		config.EnvGeminiBaseURL, config.EnvLogLevel, config.EnvLogFile, config.EnvMetricsAddr,
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()

	tests := []struct {
		flag string
		want string
	}{
		{config.FlagLogLevel, "INFO"},
		{config.FlagLogFile, ""},
		{config.FlagMetricsAddr, ""},
		{config.FlagEnvFile, ".env"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("Expected flag --%s to be defined", tt.flag)
			}
			if flag.DefValue != tt.want {
				t.Errorf("Expected default %q for --%s, got %q", tt.want, tt.flag, flag.DefValue)
			}
		})
	}
}

func TestRootCommandServesStdio(t *testing.T) {
	isolateEnv(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--env-file=", "--log-level=debug"})
	cmd.SetIn(strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	decoder := json.NewDecoder(&out)
	var initResponse, listResponse struct {
		ID     int                    `json:"id"`
		Result map[string]interface{} `json:"result"`
	}
	if err := decoder.Decode(&initResponse); err != nil {
		t.Fatalf("Failed to decode initialize response: %v", err)
	}
	if err := decoder.Decode(&listResponse); err != nil {
		t.Fatalf("Failed to decode tools/list response: %v", err)
	}

	serverInfo := initResponse.Result["serverInfo"].(map[string]interface{})
	if serverInfo["name"] != "mcp-servicenow" {
		t.Errorf("Expected server name mcp-servicenow, got %v", serverInfo["name"])
	}
	if tools := listResponse.Result["tools"].([]interface{}); len(tools) != 12 {
		t.Errorf("Expected 12 tools, got %d", len(tools))
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	if code := execute(context.Background(), []string{"unexpected"}); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
}

func TestMainSignalHandling(t *testing.T) {
	if os.Getenv("TEST_MAIN_SIGNAL") == "1" {
		// Subprocess: stdin stays open, so only a signal can stop the server
		os.Exit(execute(context.Background(), []string{"--env-file="}))
	}

	for _, sig := range []syscall.Signal{syscall.SIGTERM, syscall.SIGINT} {
		t.Run(sig.String(), func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=TestMainSignalHandling")
			cmd.Env = append(os.Environ(), "TEST_MAIN_SIGNAL=1")
			stdin, err := cmd.StdinPipe()
			if err != nil {
				t.Fatalf("Failed to open stdin: %v", err)
			}
			defer stdin.Close()

			if err := cmd.Start(); err != nil {
				t.Fatalf("Failed to start main process: %v", err)
			}

			// Give it a moment to install the signal handler
			time.Sleep(200 * time.Millisecond)

			if err := cmd.Process.Signal(sig); err != nil {
				t.Errorf("Failed to send %v: %v", sig, err)
			}

			done := make(chan error, 1)
			go func() {
				done <- cmd.Wait()
			}()

			select {
			case err := <-done:
				if err != nil {
					if exitError, ok := err.(*exec.ExitError); ok && !exitError.Exited() {
						// Terminated by the signal before the handler was installed
						return
					}
					t.Errorf("Process exited with error: %v", err)
				}
			case <-time.After(5 * time.Second):
				_ = cmd.Process.Kill()
				t.Errorf("Process did not exit within timeout after %v", sig)
			}
		})
	}
}
