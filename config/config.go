package config

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/pkg/errors"
)

const (
	defaultIntervalSeconds   = 5
	defaultMaxRetries        = 3
	defaultInitialBackoffMs  = 1000
	defaultMaxBackoffMs      = 30000
	defaultEventsPollSeconds = 4
	defaultTimeoutSeconds    = 20
	defaultHistoryCacheSize  = 128
	defaultChunkSize         = 5000
	defaultMaxBlocks         = 50000
	defaultLogLevel          = "*:INFO"
)

var (
	cfgPath string
)

// NewConfig - reads the application configuration from the provided path
// and returns an AppConfig struct or an error if something goes wrong.
// Files ending in .toml are decoded as TOML, everything else as JSON.
func NewConfig(configPath string) (*data.AppConfig, error) {
	content, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &data.AppConfig{}
	if isToml(configPath) {
		_, err = toml.Decode(string(content), cfg)
	} else {
		err = json.Unmarshal(content, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can not parse %s", configPath)
	}

	ApplyDefaults(cfg)
	cfgPath = configPath

	return cfg, nil
}

// ApplyDefaults fills the optional settings left empty in the config file
func ApplyDefaults(cfg *data.AppConfig) {
	if cfg.DeploymentsDir == "" {
		cfg.DeploymentsDir = utils.DefaultDeploymentsDir
	}
	if cfg.Poller.IntervalSeconds <= 0 {
		cfg.Poller.IntervalSeconds = defaultIntervalSeconds
	}
	if cfg.Poller.MaxRetries == 0 {
		cfg.Poller.MaxRetries = defaultMaxRetries
	}
	if cfg.Poller.InitialBackoffMs <= 0 {
		cfg.Poller.InitialBackoffMs = defaultInitialBackoffMs
	}
	if cfg.Poller.MaxBackoffMs <= 0 {
		cfg.Poller.MaxBackoffMs = defaultMaxBackoffMs
	}
	if cfg.Poller.EventsPollSeconds <= 0 {
		cfg.Poller.EventsPollSeconds = defaultEventsPollSeconds
	}
	if cfg.Poller.TimeoutSeconds <= 0 {
		cfg.Poller.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = utils.DefaultHistoryLimit
	}
	if cfg.History.CacheSize <= 0 {
		cfg.History.CacheSize = defaultHistoryCacheSize
	}
	if cfg.History.ChunkSize == 0 {
		cfg.History.ChunkSize = defaultChunkSize
	}
	if cfg.History.MaxBlocks == 0 {
		cfg.History.MaxBlocks = defaultMaxBlocks
	}
	if cfg.Display.Currency == "" {
		cfg.Display.Currency = utils.DefaultCurrency
	}
	if cfg.Display.Explorer == "" {
		cfg.Display.Explorer = cfg.Network.Explorer
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

func Save(cfg *data.AppConfig) error {
	if isToml(cfgPath) {
		buff := &bytes.Buffer{}
		err := toml.NewEncoder(buff).Encode(cfg)
		if err != nil {
			return err
		}

		return ioutil.WriteFile(cfgPath, buff.Bytes(), 0644)
	}

	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return ioutil.WriteFile(cfgPath, content, 0644)
}

func isToml(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
