package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir     string `json:"data_dir"`
	LogLevel    string `json:"log_level"`
	MaxInFlight int    `json:"max_in_flight"`
	Backend     struct {
		BaseURL string `json:"base_url"`
	} `json:"backend"`
	Push struct {
		Path string `json:"path"`
	} `json:"push"`
	Realtime struct {
		BaseURL string `json:"base_url"`
		Model   string `json:"model"`
		Voice   string `json:"voice"`
	} `json:"realtime"`
	Resync struct {
		Schedule string `json:"schedule"`
	} `json:"resync"`
	Control struct {
		Addr string `json:"addr"`
	} `json:"control"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:     filepath.Join(os.Getenv("HOME"), ".kiosk"),
		MaxInFlight: 2,
	}
	cfg.LogLevel = "info"
	cfg.Backend.BaseURL = "http://localhost:5000"
	cfg.Push.Path = "/ws"
	cfg.Realtime.BaseURL = "https://api.openai.com/v1/realtime"
	cfg.Realtime.Model = "gpt-4o-realtime-preview"
	cfg.Realtime.Voice = "verse"
	cfg.Resync.Schedule = "@every 30s"
	cfg.Control.Addr = "127.0.0.1:8745"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if baseURL := os.Getenv("KIOSK_BACKEND_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if addr := os.Getenv("KIOSK_CONTROL_ADDR"); addr != "" {
		cfg.Control.Addr = addr
	}
	if dir := os.Getenv("KIOSK_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
