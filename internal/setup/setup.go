// Package setup registers the MCP server binary with Claude Desktop so the
// check_note tool is available without manual configuration edits.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const serverEntryName = "redflag-advisory"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ConfigPath returns the path to Claude Desktop's config file for the
// current platform.
func ConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// Install writes or updates the server entry in the Claude Desktop config.
// An existing config file is backed up first; other server entries are
// preserved.
func Install(binaryPath string, env map[string]string) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	absBinary, err := filepath.Abs(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve binary path: %w", err)
	}

	config := &ClaudeDesktopConfig{MCPServers: map[string]MCPServerConfig{}}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
		if config.MCPServers == nil {
			config.MCPServers = map[string]MCPServerConfig{}
		}
		backup := configPath + ".backup"
		if err := os.WriteFile(backup, data, 0600); err != nil {
			return fmt.Errorf("failed to back up config: %w", err)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	default:
		return fmt.Errorf("failed to read config: %w", err)
	}

	config.MCPServers[serverEntryName] = MCPServerConfig{
		Command: absBinary,
		Env:     env,
	}

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
