package dupfind

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config represents the dupfind configuration
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default    string // Digest used by both hashing stages
	PrefixSize string // Bytes read by the prefix stage (default: "1K")
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Format string // json, yaml, msgpack, fdupes, sqlite, human
	File   string // Output path, "-" for stdout
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=info, 1=debug, 2=per-file, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int    // Number of concurrent hash workers (default: 4)
	HashBuffer  string // Read size of the full hasher (default: "1K")
}

// WalkConfig controls which files are considered at all
type WalkConfig struct {
	MinSize    string // Files smaller than this are not reported (default: "0")
	IgnoreFile string // Optional file of regex ignore patterns
}

// HardLinkConfig represents hard link handling
type HardLinkConfig struct {
	Mode string // include or collapse
}

// VerifyConfig represents the optional bytewise verification stage
type VerifyConfig struct {
	Bytewise bool
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash        *HashConfig
	Output      *OutputConfig
	Verbose     *VerboseConfig
	Performance *PerformanceConfig
	Walk        *WalkConfig
	HardLink    *HardLinkConfig
	Verify      *VerifyConfig
}

// envOverrides is filled from DUPFIND_* environment variables
type envOverrides struct {
	Algorithm   string `envconfig:"ALGORITHM"`
	PrefixSize  string `envconfig:"PREFIX_SIZE"`
	HashWorkers string `envconfig:"HASH_WORKERS"`
	HashBuffer  string `envconfig:"HASH_BUFFER"`
	Format      string `envconfig:"FORMAT"`
	File        string `envconfig:"FILE"`
	Level       string `envconfig:"LEVEL"`
	Debug       string `envconfig:"DEBUG"`
	MinSize     string `envconfig:"MIN_SIZE"`
	HardLinks   string `envconfig:"HARDLINKS"`
	Verify      string `envconfig:"VERIFY"`
}

// DefaultConfig returns an in-memory configuration holding the defaults
func DefaultConfig() *Config {
	cfg := &Config{ini: ini.Empty()}
	// Cannot fail on an empty file
	_ = cfg.setDefaults()
	return cfg
}

// LoadConfig loads configuration from configPath. An empty path yields the
// defaults without touching disk; a missing file is created with defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, errors.Wrap(err, "failed to set default config")
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create config directory")
		}
		if err := cfg.Save(); err != nil {
			return nil, errors.Wrap(err, "failed to save default config")
		}
	} else {
		iniFile, err := ini.Load(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load config file")
		}
		cfg.ini = iniFile
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section, key, value string
	}{
		{"filehash", "default", DefaultAlgorithm},
		{"filehash", "prefix_size", "1K"},
		{"output", "format", DefaultFormat},
		{"output", "file", DefaultOutputFile},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
		{"performance", "hash_workers", strconv.Itoa(DefaultWorkers)},
		{"performance", "hash_buffer", "1K"},
		{"walk", "min_size", "0"},
		{"walk", "ignore_file", ""},
		{"hardlink", "mode", HardLinkInclude},
		{"verify", "bytewise", "false"},
	}

	for _, d := range defaults {
		section := c.ini.Section(d.section)
		if _, err := section.NewKey(d.key, d.value); err != nil {
			return errors.Wrapf(err, "failed to set default %s.%s", d.section, d.key)
		}
	}
	return nil
}

// stringValue returns section.key or fallback when absent or empty
func (c *Config) stringValue(section, key, fallback string) string {
	if !c.ini.HasSection(section) {
		return fallback
	}
	s := c.ini.Section(section)
	if !s.HasKey(key) {
		return fallback
	}
	if v := s.Key(key).String(); v != "" {
		return v
	}
	return fallback
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	return &HashConfig{
		Default:    c.stringValue("filehash", "default", DefaultAlgorithm),
		PrefixSize: c.stringValue("filehash", "prefix_size", "1K"),
	}
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	return &OutputConfig{
		Format: c.stringValue("output", "format", DefaultFormat),
		File:   c.stringValue("output", "file", DefaultOutputFile),
	}
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers: DefaultWorkers,
		HashBuffer:  c.stringValue("performance", "hash_buffer", "1K"),
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil {
				performanceConfig.HashWorkers = workers
			}
		}
	}

	return performanceConfig
}

// GetWalkConfig returns the walk configuration
func (c *Config) GetWalkConfig() *WalkConfig {
	return &WalkConfig{
		MinSize:    c.stringValue("walk", "min_size", "0"),
		IgnoreFile: c.stringValue("walk", "ignore_file", ""),
	}
}

// GetHardLinkConfig returns the hard link configuration
func (c *Config) GetHardLinkConfig() *HardLinkConfig {
	return &HardLinkConfig{
		Mode: c.stringValue("hardlink", "mode", HardLinkInclude),
	}
}

// GetVerifyConfig returns the verification configuration
func (c *Config) GetVerifyConfig() *VerifyConfig {
	verifyConfig := &VerifyConfig{}
	if c.ini.HasSection("verify") {
		if bytewise, err := c.ini.Section("verify").Key("bytewise").Bool(); err == nil {
			verifyConfig.Bytewise = bytewise
		}
	}
	return verifyConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:        c.GetHashConfig(),
		Output:      c.GetOutputConfig(),
		Verbose:     c.GetVerboseConfig(),
		Performance: c.GetPerformanceConfig(),
		Walk:        c.GetWalkConfig(),
		HardLink:    c.GetHardLinkConfig(),
		Verify:      c.GetVerifyConfig(),
	}
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("configuration has no file")
	}
	return c.ini.SaveTo(c.configPath)
}

// overrideKeys maps override names to their section and key
var overrideKeys = map[string][2]string{
	"default":      {"filehash", "default"},
	"prefix_size":  {"filehash", "prefix_size"},
	"format":       {"output", "format"},
	"file":         {"output", "file"},
	"level":        {"verbose", "level"},
	"debug":        {"verbose", "debug"},
	"hash_workers": {"performance", "hash_workers"},
	"hash_buffer":  {"performance", "hash_buffer"},
	"min_size":     {"walk", "min_size"},
	"ignore_file":  {"walk", "ignore_file"},
	"mode":         {"hardlink", "mode"},
	"bytewise":     {"verify", "bytewise"},
}

// Set stores one override key (see ApplyOverrides) in memory
func (c *Config) Set(key, value string) error {
	target, ok := overrideKeys[key]
	if !ok {
		return errors.Errorf("unsupported override key '%s'", key)
	}
	c.ini.Section(target[0]).Key(target[1]).SetValue(value)
	return nil
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "default:sha3-512", "format:yaml", "level:2", "hash_workers:8"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return errors.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		if err := c.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return err
		}
	}

	return nil
}

// ApplyEnv applies DUPFIND_* environment variables on top of the file
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process("dupfind", &env); err != nil {
		return errors.Wrap(err, "failed to read environment")
	}

	pairs := []struct{ key, value string }{
		{"default", env.Algorithm},
		{"prefix_size", env.PrefixSize},
		{"hash_workers", env.HashWorkers},
		{"hash_buffer", env.HashBuffer},
		{"format", env.Format},
		{"file", env.File},
		{"level", env.Level},
		{"debug", env.Debug},
		{"min_size", env.MinSize},
		{"mode", env.HardLinks},
		{"bytewise", env.Verify},
	}
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		if err := c.Set(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every value the scanner and sinks will use
func (c *Config) Validate() error {
	// The typed getters fall back to defaults on unparsable values
	for _, k := range []struct{ section, key string }{
		{"verbose", "level"},
		{"performance", "hash_workers"},
	} {
		if v := c.stringValue(k.section, k.key, ""); v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				return errors.Errorf("invalid %s: '%s' is not an integer", k.key, v)
			}
		}
	}
	if v := c.stringValue("verify", "bytewise", ""); v != "" {
		if _, err := c.ini.Section("verify").Key("bytewise").Bool(); err != nil {
			return errors.Errorf("invalid bytewise: '%s' is not a boolean", v)
		}
	}

	all := c.GetAllConfig()

	if err := ValidateHashAlgorithm(all.Hash.Default); err != nil {
		return err
	}
	if err := ValidateOutputFormat(all.Output.Format); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return err
	}
	if err := ValidateHashWorkers(all.Performance.HashWorkers); err != nil {
		return err
	}
	if err := ValidateHardLinkMode(all.HardLink.Mode); err != nil {
		return err
	}
	for name, value := range map[string]string{
		"prefix_size": all.Hash.PrefixSize,
		"hash_buffer": all.Performance.HashBuffer,
	} {
		size, err := ParseHumanSize(value)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", name)
		}
		if size == 0 {
			return errors.Errorf("%s must be positive", name)
		}
	}
	if _, err := ParseHumanSize(all.Walk.MinSize); err != nil {
		return errors.Wrap(err, "invalid min_size")
	}
	return nil
}

// ScanOptions builds scanner options from the configuration
func (c *Config) ScanOptions() (Options, error) {
	if err := c.Validate(); err != nil {
		return Options{}, err
	}
	all := c.GetAllConfig()

	// Validate has already parsed these
	prefixSize, _ := ParseHumanSize(all.Hash.PrefixSize)
	hashBuffer, _ := ParseHumanSize(all.Performance.HashBuffer)
	minSize, _ := ParseHumanSize(all.Walk.MinSize)

	return Options{
		Algorithm:  strings.ToLower(all.Hash.Default),
		PrefixSize: prefixSize,
		HashBuffer: int(hashBuffer),
		Workers:    all.Performance.HashWorkers,
		MinSize:    minSize,
		HardLinks:  strings.ToLower(all.HardLink.Mode),
		Verify:     all.Verify.Bytewise,
		IgnoreFile: all.Walk.IgnoreFile,
	}, nil
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, ok := HashTypeFromName(algorithm); !ok {
		return errors.Errorf("unsupported hash algorithm: %s (supported: sha512, sha3-512, blake2b-512)", algorithm)
	}
	return nil
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "yaml", "msgpack", "fdupes", "sqlite", "human":
		return nil
	default:
		return errors.Errorf("unsupported output format: %s (supported: json, yaml, msgpack, fdupes, sqlite, human)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return errors.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return errors.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > MaxWorkers {
		return errors.Errorf("hash workers should not exceed %d, got: %d", MaxWorkers, workers)
	}
	return nil
}

// ValidateHardLinkMode validates a hard link handling mode
func ValidateHardLinkMode(mode string) error {
	switch strings.ToLower(mode) {
	case HardLinkInclude, HardLinkCollapse:
		return nil
	default:
		return errors.Errorf("unsupported hard link mode: %s (supported: include, collapse)", mode)
	}
}
