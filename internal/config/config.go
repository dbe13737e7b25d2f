// Package config loads gav runtime configuration from the global TOML
// file with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"gav/internal/content"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7411"
	DefaultDBFileName = ".gav.db"
	DefaultLogLevel   = "info"

	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024
	DefaultAuditBuffer              = 256
	DefaultAuditRetentionDays       = 30

	configDirEnvKey       = "GAV_CONFIG_DIR"
	apiURLEnvKey          = "GAV_API_URL"
	dbPathEnvKey          = "GAV_DB"
	logLevelEnvKey        = "GAV_LOG_LEVEL"
	blobRootEnvKey        = "GAV_BLOB_ROOT"
	inlineThresholdEnvKey = "GAV_INLINE_THRESHOLD_BYTES"
	maxUploadEnvKey       = "GAV_MAX_UPLOAD_BYTES"
	adminTokenHashEnvKey  = "GAV_ADMIN_TOKEN_HASH"

	configFileName = ".gav.toml"
)

// ContentConfig holds the size-tier policy and upload parsing limits.
type ContentConfig struct {
	InlineThresholdBytes int64 `toml:"inline_threshold_bytes"`
	MaxUploadBytes       int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory   int64 `toml:"multipart_max_memory"`
}

// BlobConfig holds the external storage tier settings.
type BlobConfig struct {
	Enabled bool   `toml:"enabled"`
	Root    string `toml:"root"`
}

// AuditConfig holds the audit side-channel settings.
type AuditConfig struct {
	Enabled       bool `toml:"enabled"`
	Buffer        int  `toml:"buffer"`
	RetentionDays int  `toml:"retention_days"`
}

// Config defines runtime configuration for gav.
type Config struct {
	APIURL         string        `toml:"api_url"`
	DBPath         string        `toml:"db_path"`
	LogLevel       string        `toml:"log_level"`
	AdminTokenHash string        `toml:"admin_token_hash"`
	Content        ContentConfig `toml:"content"`
	Blob           BlobConfig    `toml:"blob"`
	Audit          AuditConfig   `toml:"audit"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Content: ContentConfig{
			InlineThresholdBytes: content.DefaultInlineThresholdBytes,
			MaxUploadBytes:       content.DefaultMaxUploadBytes,
			MultipartMaxMemory:   DefaultMultipartMaxMemory,
		},
		Blob: BlobConfig{
			Enabled: true,
			Root:    "",
		},
		Audit: AuditConfig{
			Enabled:       true,
			Buffer:        DefaultAuditBuffer,
			RetentionDays: DefaultAuditRetentionDays,
		},
	}
}

// Load reads config from the global file and applies env overrides. The
// size-tier relationship is validated so a misconfigured policy fails at
// startup, not per request.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err == nil {
		if err := loadFileIfExists(path, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.normalizeDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.Content.InlineThresholdBytes <= 0 {
		return fmt.Errorf("content.inline_threshold_bytes must be positive, got %d", c.Content.InlineThresholdBytes)
	}
	if c.Content.MaxUploadBytes <= 0 {
		return fmt.Errorf("content.max_upload_bytes must be positive, got %d", c.Content.MaxUploadBytes)
	}
	if c.Content.InlineThresholdBytes >= c.Content.MaxUploadBytes {
		return fmt.Errorf("content.inline_threshold_bytes (%d) must be less than content.max_upload_bytes (%d)",
			c.Content.InlineThresholdBytes, c.Content.MaxUploadBytes)
	}
	if c.Content.MultipartMaxMemory <= 0 {
		return fmt.Errorf("content.multipart_max_memory must be positive, got %d", c.Content.MultipartMaxMemory)
	}
	if c.Audit.Buffer <= 0 {
		return fmt.Errorf("audit.buffer must be positive, got %d", c.Audit.Buffer)
	}
	return nil
}

// ContentPolicy builds the admission policy from the configured tiers.
func (c *Config) ContentPolicy() (content.Policy, error) {
	return content.NewPolicy(c.Content.InlineThresholdBytes, c.Content.MaxUploadBytes)
}

// BlobRoot returns the external tier root, defaulting next to the DB.
func (c *Config) BlobRoot() string {
	if c.Blob.Root != "" {
		return c.Blob.Root
	}
	return filepath.Join(filepath.Dir(c.DBPath), ".gav", "blobs")
}

func applyEnvOverrides(cfg *Config) {
	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if level := os.Getenv(logLevelEnvKey); level != "" {
		cfg.LogLevel = level
	}
	if root := os.Getenv(blobRootEnvKey); root != "" {
		cfg.Blob.Root = root
	}
	if hash := os.Getenv(adminTokenHashEnvKey); hash != "" {
		cfg.AdminTokenHash = hash
	}
	if raw := strings.TrimSpace(os.Getenv(inlineThresholdEnvKey)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Content.InlineThresholdBytes = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv(maxUploadEnvKey)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Content.MaxUploadBytes = parsed
		}
	}
}

func (c *Config) normalizeDefaults() {
	if c.Content.MultipartMaxMemory <= 0 {
		c.Content.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Audit.Buffer <= 0 {
		c.Audit.Buffer = DefaultAuditBuffer
	}
	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = DefaultAuditRetentionDays
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func loadFileIfExists(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"admin_token_hash",
	"content.inline_threshold_bytes",
	"content.max_upload_bytes",
	"content.multipart_max_memory",
	"blob.enabled",
	"blob.root",
	"audit.enabled",
	"audit.buffer",
	"audit.retention_days",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "admin_token_hash":
		return c.AdminTokenHash, nil
	case "content.inline_threshold_bytes":
		return strconv.FormatInt(c.Content.InlineThresholdBytes, 10), nil
	case "content.max_upload_bytes":
		return strconv.FormatInt(c.Content.MaxUploadBytes, 10), nil
	case "content.multipart_max_memory":
		return strconv.FormatInt(c.Content.MultipartMaxMemory, 10), nil
	case "blob.enabled":
		return strconv.FormatBool(c.Blob.Enabled), nil
	case "blob.root":
		return c.Blob.Root, nil
	case "audit.enabled":
		return strconv.FormatBool(c.Audit.Enabled), nil
	case "audit.buffer":
		return strconv.Itoa(c.Audit.Buffer), nil
	case "audit.retention_days":
		return strconv.Itoa(c.Audit.RetentionDays), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "content.inline_threshold_bytes", "content.max_upload_bytes", "content.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "audit.buffer", "audit.retention_days":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "blob.enabled", "audit.enabled":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}
