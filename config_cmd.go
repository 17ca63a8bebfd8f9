package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech engine: gemini (online) or tone (offline test tone)
engine: "gemini"
# default voice persona (see "shobdo voices")
voice: "nodi"
# log debug output
debug: false

# The Gemini API key is read from GEMINI_API_KEY (or API_KEY) in the
# environment or a .env file, never from this file.
gemini:
  model: "gemini-2.5-flash-preview-tts"
  base_url: "https://generativelanguage.googleapis.com/v1beta"
  timeout: "60s"
  requests_per_minute: 10

# format of the PCM the engine returns
audio:
  sample_rate: 24000
  channels: 1

# in-memory reply cache for "shobdo serve", off by default. When on,
# repeating a request replays the cached audio instead of asking the
# engine again.
cache:
  max_size_mb: 0
  ttl: "1h"

history:
  enabled: true
  # defaults to the user data directory
  # dir: "~/shobdo/history"
  max_size_mb: 256
  # zstd level for stored audio (0 stores WAV files as is)
  compression_level: 3

server:
  addr: "127.0.0.1:8080"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the shobdo config file",
	Long:    paragraph(fmt.Sprintf("\n%s the shobdo config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("shobdo config\nshobdo config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("shobdo", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
