package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for alarmd.
type Config struct {
	SocketPath          string         `toml:"socket_path"`
	LogDir              string         `toml:"log_dir"`
	PollIntervalSeconds int            `toml:"poll_interval_seconds"`
	Sound               SoundConfig    `toml:"sound"`
	Snapshot            SnapshotConfig `toml:"snapshot"`
}

// SoundConfig describes the notification sound and the player that plays it.
type SoundConfig struct {
	// Path is the sound file played when an alarm fires. Must exist at
	// daemon startup.
	Path string `toml:"path"`
	// Player is the command (program plus arguments) the sound path is
	// appended to.
	Player []string `toml:"player"`
}

// SnapshotConfig represents configuration for the snapshot store.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type SnapshotConfig struct {
	Type    string `toml:"type"`               // "json", "sqlite", or "memory"
	Path    string `toml:"path,omitempty"`     // only used for type=json
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		SocketPath:          filepath.Join(os.TempDir(), "alarmd.sock"),
		LogDir:              filepath.Join(baseDir, "log"),
		PollIntervalSeconds: 15,
		Sound: SoundConfig{
			Path:   filepath.Join(baseDir, "alarm.mp3"),
			Player: []string{"mpv", "--loop", "--no-video"},
		},
		Snapshot: SnapshotConfig{
			Type: "json",
			Path: filepath.Join(baseDir, "alarms.json"),
		},
	}
}

// PollInterval returns the buzzer poll interval, defaulting when unset.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided
// Config. Refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
