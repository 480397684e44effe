package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/teranos/issuebot/errors"
)

// ExampleConfig returns the defaults plus placeholder identity values,
// suitable for writing a starter am.toml.
func ExampleConfig() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	cfg.Tracker.Owner = "your-org"
	cfg.Tracker.Repo = "your-repo"
	cfg.Board.RepoID = "123940607"
	return cfg, nil
}

// WriteConfig marshals cfg as TOML to configPath.
// An existing file is rotated to .back1 (and .back1 to .back2) first.
func WriteConfig(cfg *Config, configPath string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(configPath))
	}

	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	// Credentials end up in this file; keep it private to the owner
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

// createBackup creates rotating backups (.back1, .back2) before overwriting a config
func createBackup(configPath string) error {
	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	back1 := configPath + ".back1"
	back2 := configPath + ".back2"

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	if err := os.WriteFile(back1, content, 0600); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
