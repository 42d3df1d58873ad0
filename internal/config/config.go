package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/penv/internal/model"
	"github.com/shinji-kodama/penv/internal/netcheck"
	"github.com/shinji-kodama/penv/internal/pyruntime"
	"github.com/shinji-kodama/penv/internal/requirements"
	"github.com/shinji-kodama/penv/internal/venv"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "PENV"

// DefaultFileName is the file written by `penv config init`.
const DefaultFileName = ".penv.yaml"

// SearchFiles are the project config files looked up in the working
// directory, in order.
var SearchFiles = []string{".penv.yaml", ".penv.yml", ".penv.json"}

// Config holds the resolved settings.
type Config struct {
	// Venv is the virtual environment directory. When set by flag the
	// interactive name prompt is skipped.
	Venv string `mapstructure:"venv" yaml:"venv" json:"venv"`

	// Python is the base interpreter used to create the environment.
	// Empty means auto-detect.
	Python string `mapstructure:"python" yaml:"python" json:"python"`

	// MinPython is the lowest accepted interpreter version.
	MinPython string `mapstructure:"min_python" yaml:"min_python" json:"min_python"`

	// InstallVersion and InstallDir drive the automatic runtime install
	// on Windows.
	InstallVersion string `mapstructure:"install_version" yaml:"install_version" json:"install_version"`
	InstallDir     string `mapstructure:"install_dir" yaml:"install_dir" json:"install_dir"`

	// RequirementsFile is the default answer to the requirements file
	// prompt and the output of freeze.
	RequirementsFile string `mapstructure:"requirements_file" yaml:"requirements_file" json:"requirements_file"`

	ConnectivityURL     string        `mapstructure:"connectivity_url" yaml:"connectivity_url" json:"connectivity_url"`
	ConnectivityTimeout time.Duration `mapstructure:"connectivity_timeout" yaml:"connectivity_timeout" json:"connectivity_timeout"`

	// CheckUpdatesOnStart lists outdated packages when the menu opens.
	CheckUpdatesOnStart bool `mapstructure:"check_updates_on_start" yaml:"check_updates_on_start" json:"check_updates_on_start"`

	// Offline skips the connectivity check.
	Offline bool `mapstructure:"offline" yaml:"offline" json:"offline"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Venv:                venv.DefaultName,
		MinPython:           pyruntime.DefaultMinVersion,
		InstallVersion:      pyruntime.DefaultInstallVersion,
		InstallDir:          pyruntime.DefaultInstallDir,
		RequirementsFile:    requirements.DefaultFile,
		ConnectivityURL:     netcheck.DefaultURL,
		ConnectivityTimeout: netcheck.DefaultTimeout,
		CheckUpdatesOnStart: true,
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ConfigFile, when set, is used exclusively and must exist.
	ConfigFile string

	// Dir is searched for SearchFiles. Empty means the working directory.
	Dir string

	// Flags are bound on top of every other source. Only flags the user
	// actually set take effect. May be nil.
	Flags *pflag.FlagSet
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"venv":    "venv",
	"python":  "python",
	"offline": "offline",
}

// Load resolves the configuration. It returns the settings and the path of
// the config file that was read, or "" when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("venv", defaults.Venv)
	v.SetDefault("python", defaults.Python)
	v.SetDefault("min_python", defaults.MinPython)
	v.SetDefault("install_version", defaults.InstallVersion)
	v.SetDefault("install_dir", defaults.InstallDir)
	v.SetDefault("requirements_file", defaults.RequirementsFile)
	v.SetDefault("connectivity_url", defaults.ConnectivityURL)
	v.SetDefault("connectivity_timeout", defaults.ConnectivityTimeout)
	v.SetDefault("check_updates_on_start", defaults.CheckUpdatesOnStart)
	v.SetDefault("offline", defaults.Offline)

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := readInto(v, path); err != nil {
			return nil, "", model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to load config %s", path), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for flagName, key := range flagKeys {
			if f := opts.Flags.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("failed to bind flag --%s: %w", flagName, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", model.WrapCLIError(model.ExitGeneralError, "failed to parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			return nil, "", err
		}
		return nil, "", model.WrapCLIError(model.ExitGeneralError, "invalid config", err)
	}
	return &cfg, path, nil
}

// resolvePath picks the config file to read.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		if !fileExists(opts.ConfigFile) {
			return "", model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("config file not found: %s", opts.ConfigFile))
		}
		return opts.ConfigFile, nil
	}

	for _, name := range SearchFiles {
		candidate := filepath.Join(opts.Dir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// readInto merges the file at path into v. The format follows the file
// extension; anything that is not .json is read as YAML.
func readInto(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		v.SetConfigType("json")
		data = jsonc.ToJSON(data)
	} else {
		v.SetConfigType("yaml")
	}
	return v.MergeConfig(bytes.NewReader(data))
}

// Validate checks values that viper cannot type-check. An invalid venv
// name is a CLIError with ExitVenvError.
func (c *Config) Validate() error {
	if err := model.ValidateVenvName(c.Venv); err != nil {
		return model.WrapCLIError(model.ExitVenvError, "invalid config: venv", err)
	}
	if model.CanonicalSemver(c.MinPython) == "" {
		return fmt.Errorf("min_python: %q is not a version number", c.MinPython)
	}
	if model.CanonicalSemver(c.InstallVersion) == "" {
		return fmt.Errorf("install_version: %q is not a version number", c.InstallVersion)
	}
	if c.ConnectivityTimeout <= 0 {
		return errors.New("connectivity_timeout must be positive")
	}
	return nil
}

// WriteFile writes c as YAML to path. An existing file is only replaced
// when force is set.
func WriteFile(path string, c *Config, force bool) error {
	if !force && fileExists(path) {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}

	body, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# penv configuration. Environment variables PENV_<KEY> and flags override these values.\n")
	buf.Write(body)

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
