package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/rxtech-lab/argo-autotrader/pkg/utils"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the bots look for their settings file.
const DefaultPath = "config/settings.yaml"

// Load reads the settings file at path over Default(). A missing file yields
// the defaults. Environment variables, optionally seeded from envFile, are
// applied last. The result is validated.
func Load(path string, envFile string) (Settings, error) {
	cfg := Default()

	if err := decodeFile(path, &cfg); err != nil {
		return Settings{}, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Settings{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load env file %s", envFile)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Settings{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Settings) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read settings %s", path)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse settings %s", path)
		}

		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse settings %s", path)
	}

	return nil
}

func applyEnvOverrides(cfg *Settings) error {
	if v := os.Getenv("AUTOTRADER_MODE"); v != "" {
		cfg.Mode = types.Mode(strings.ToLower(v))
	}

	if v := os.Getenv("AUTOTRADER_CAPITAL"); v != "" {
		capital, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid AUTOTRADER_CAPITAL %q", v)
		}

		cfg.Capital = capital
	}

	setStr(&cfg.Redis.Addr, "AUTOTRADER_REDIS_ADDR")
	setStr(&cfg.Journal.SQLDSN, "AUTOTRADER_SQL_DSN")

	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Save writes settings to path in the format its extension names. The file
// is replaced atomically.
func Save(path string, cfg Settings) error {
	var buf bytes.Buffer

	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode settings", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)

		if err := enc.Encode(cfg); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode settings", err)
		}

		enc.Close()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create settings directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create temp settings file", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()

		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to write settings", err)
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to write settings", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to replace settings", err)
	}

	return nil
}

// Schema returns the JSON schema of the settings file.
func Schema() (string, error) {
	schema, err := utils.GetSchemaFromConfig(&Settings{})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal settings schema", err)
	}

	return schema, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
