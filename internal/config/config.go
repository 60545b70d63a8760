package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config はアプリケーション設定
type Config struct {
	AccessToken string `json:"access_token"` // Asana Personal Access Token
	RulesFile   string `json:"rules_file"`   // ルール定義ファイルのパス
	Timezone    string `json:"timezone"`     // "今日"の基準となるIANAタイムゾーン名
}

// EnvAccessToken は設定ファイルよりも優先されるトークンの環境変数名
const EnvAccessToken = "ASANA_PERSONAL_ACCESS_TOKEN"

// configFileName は設定ファイル名
const configFileName = "config.json"

// configDirName は設定ディレクトリ名
const configDirName = ".asana-rules"

// Load は設定ファイルを読み込む
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// 環境変数が設定されていればトークンを上書き
	if token := os.Getenv(EnvAccessToken); token != "" {
		cfg.AccessToken = token
	}

	if cfg.RulesFile == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		cfg.RulesFile = filepath.Join(dir, "rules.yaml")
	}

	return cfg, nil
}

// Save は設定ファイルを保存する
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	// ディレクトリ作成
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate は設定が有効かどうかを検証する
func (c *Config) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required. Run: asana-rules auth login")
	}
	return nil
}

// Location は設定されたタイムゾーンを返す。未設定ならシステムのローカルを返す
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
