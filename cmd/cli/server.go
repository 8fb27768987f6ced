package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/yourusername/pulldown-go/api/handlers"
)

const (
	agentBinary       = "pulldown-agent"
	agentStartTimeout = 10 * time.Second
	agentPollInterval = 200 * time.Millisecond
)

// agentHealth asks the agent for its session. It fails when nothing is listening.
func agentHealth(api *apiClient) (*handlers.HealthResponse, error) {
	var health handlers.HealthResponse
	if err := api.get("/health", nil, &health); err != nil {
		return nil, err
	}
	if health.SessionID == "" {
		return nil, errors.New("agent reported no session")
	}
	return &health, nil
}

// agentCandidates lists where the agent binary may live, in lookup order
func agentCandidates() []string {
	var paths []string
	if self, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(self), agentBinary))
	}
	if found, err := exec.LookPath(agentBinary); err == nil {
		paths = append(paths, found)
	}
	home := os.Getenv("HOME")
	return append(paths,
		filepath.Join("/usr/local/bin", agentBinary),
		filepath.Join(home, "go", "bin", agentBinary),
		filepath.Join(home, ".local", "bin", agentBinary),
	)
}

func findAgentBinary() (string, error) {
	for _, p := range agentCandidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s binary not found", agentBinary)
}

// launchAgent starts the agent, which detaches itself into the background
func launchAgent() error {
	path, err := findAgentBinary()
	if err != nil {
		return err
	}

	cmd := exec.Command(path)
	setSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	go cmd.Wait()
	return nil
}

// waitForAgent polls /health until the agent reports a session
func waitForAgent(api *apiClient, timeout time.Duration) (*handlers.HealthResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		health, err := agentHealth(api)
		if err == nil {
			return health, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("agent did not start within %v: %w", timeout, err)
		}
		time.Sleep(agentPollInterval)
	}
}

// ensureServerRunning starts the agent when no session answers at serverURL
func ensureServerRunning() error {
	api := newAPIClient(serverURL)
	api.http.Timeout = time.Second

	if _, err := agentHealth(api); err == nil {
		return nil
	}

	fmt.Println("Agent not running, starting...")
	if err := launchAgent(); err != nil {
		return err
	}

	health, err := waitForAgent(api, agentStartTimeout)
	if err != nil {
		return err
	}
	fmt.Printf("Agent started (session %s, backend %s)\n", health.SessionID, health.Connection)
	return nil
}
