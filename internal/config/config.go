// Package config handles configuration loading and validation for CallEagle.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/imyousuf/CallEagle/internal/callgraph"
	"github.com/imyousuf/CallEagle/internal/workspace"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".calleagle"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. CALLEAGLE_TRAVERSAL_PROJECT_MAX_DEPTH.
	EnvPrefix = "CALLEAGLE"
)

// Config holds all configuration for CallEagle.
type Config struct {
	// Project lists the sources to load.
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	// Traversal bounds and shapes call-graph builds.
	Traversal TraversalConfig `mapstructure:"traversal" yaml:"traversal"`
	// Filters suppresses methods from graphs.
	Filters FiltersConfig `mapstructure:"filters" yaml:"filters"`
	// DI tunes dependency-injection narrowing.
	DI DIConfig `mapstructure:"di" yaml:"di"`
	// Cache locates the parsed-fact cache.
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
	// Watch contains file watching configuration.
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`

	// file is the configuration file the values were read from, if any.
	file string
}

// ProjectConfig holds project metadata and source locations.
type ProjectConfig struct {
	// Name is the project name.
	Name string `mapstructure:"name" yaml:"name"`
	// Roots are the project source roots.
	Roots []string `mapstructure:"roots" yaml:"roots"`
	// Libraries are third-party source roots (e.g. unpacked source jars).
	Libraries []string `mapstructure:"libraries" yaml:"libraries"`
	// Mappers are directories scanned for mapping XML. Empty means Roots.
	Mappers []string `mapstructure:"mappers" yaml:"mappers"`
}

// TraversalConfig holds the depth budgets and expansion switches.
type TraversalConfig struct {
	ProjectMaxDepth               int  `mapstructure:"project_max_depth" yaml:"project_max_depth"`
	ThirdPartyMaxDepth            int  `mapstructure:"third_party_max_depth" yaml:"third_party_max_depth"`
	ExpandImplementations         bool `mapstructure:"expand_implementations" yaml:"expand_implementations"`
	IncludeLibraryImplementations bool `mapstructure:"include_library_implementations" yaml:"include_library_implementations"`
	FilterUnusedParams            bool `mapstructure:"filter_unused_params" yaml:"filter_unused_params"`
}

// FiltersConfig holds exclusion patterns and member filters.
type FiltersConfig struct {
	// Exclude lists regular expressions, optionally prefixed with a facet
	// (pkg:, class:, method:, sig:).
	Exclude            []string `mapstructure:"exclude" yaml:"exclude"`
	SkipAccessors      bool     `mapstructure:"skip_accessors" yaml:"skip_accessors"`
	SkipToString       bool     `mapstructure:"skip_to_string" yaml:"skip_to_string"`
	SkipEqualsHashCode bool     `mapstructure:"skip_equals_hash_code" yaml:"skip_equals_hash_code"`
}

// DIConfig holds dependency-injection settings.
type DIConfig struct {
	// MatchByName narrows candidates to the bean named like the injection point.
	MatchByName bool `mapstructure:"match_by_name" yaml:"match_by_name"`
}

// CacheConfig holds the fact cache location.
type CacheConfig struct {
	// Dir is the BadgerDB directory. Empty disables the cache.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// WatchConfig holds file watching configuration.
type WatchConfig struct {
	// Exclude lists glob patterns to exclude from loading and watching.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// Load loads configuration from file, environment variables, and defaults.
// The file is the one named by the global "config_file" key, else
// .calleagle.yaml in the current directory, else the registered project
// containing the current directory.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper)
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
		if cwd, err := os.Getwd(); err == nil {
			if entry, ok := LookupProject(cwd); ok && entry.ConfigFile != "" {
				v.AddConfigPath(filepath.Dir(entry.ConfigFile))
			}
		}
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()
	return &cfg, nil
}

// Default returns the configuration Load produces with no file or
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// File returns the configuration file that was read, or "" when only
// defaults and the environment applied.
func (c *Config) File() string { return c.file }

// BaseDir is the directory relative paths are resolved against: the
// directory of the configuration file, else the current directory.
func (c *Config) BaseDir() string {
	if c.file != "" {
		return filepath.Dir(c.file)
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Project.Roots) == 0 {
		return fmt.Errorf("at least one project root must be configured")
	}
	for i, root := range c.Project.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("project root %d: path is required", i)
		}
	}
	for i, lib := range c.Project.Libraries {
		if strings.TrimSpace(lib) == "" {
			return fmt.Errorf("project library %d: path is required", i)
		}
	}
	if err := c.CallGraph().Validate(); err != nil {
		return fmt.Errorf("traversal: %w", err)
	}
	return nil
}

// CallGraph converts the traversal settings for the builder.
func (c *Config) CallGraph() callgraph.Config {
	return callgraph.Config{
		ProjectMaxDepth:               c.Traversal.ProjectMaxDepth,
		ThirdPartyMaxDepth:            c.Traversal.ThirdPartyMaxDepth,
		ExpandImplementations:         c.Traversal.ExpandImplementations,
		IncludeLibraryImplementations: c.Traversal.IncludeLibraryImplementations,
		FilterUnusedParams:            c.Traversal.FilterUnusedParams,
		Exclude:                       append([]string(nil), c.Filters.Exclude...),
		Filters: callgraph.Filters{
			SkipAccessors:      c.Filters.SkipAccessors,
			SkipToString:       c.Filters.SkipToString,
			SkipEqualsHashCode: c.Filters.SkipEqualsHashCode,
		},
		MatchByName: c.DI.MatchByName,
	}
}

// Workspace converts the project settings, resolving relative paths
// against BaseDir.
func (c *Config) Workspace() workspace.Config {
	base := c.BaseDir()
	cfg := workspace.Config{
		Roots:     resolve(base, c.Project.Roots),
		Libraries: resolve(base, c.Project.Libraries),
		Mappers:   resolve(base, c.Project.Mappers),
		Exclude:   append([]string(nil), c.Watch.Exclude...),
	}
	if c.Cache.Dir != "" {
		cfg.CacheDir = resolve(base, []string{c.Cache.Dir})[0]
	}
	return cfg
}

func resolve(base string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = filepath.Clean(p)
		} else {
			out[i] = filepath.Join(base, p)
		}
	}
	return out
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	defaults := callgraph.DefaultConfig()

	v.SetDefault("project.name", "")
	v.SetDefault("project.roots", []string{"."})
	v.SetDefault("project.libraries", []string{})
	v.SetDefault("project.mappers", []string{})

	v.SetDefault("traversal.project_max_depth", defaults.ProjectMaxDepth)
	v.SetDefault("traversal.third_party_max_depth", defaults.ThirdPartyMaxDepth)
	v.SetDefault("traversal.expand_implementations", defaults.ExpandImplementations)
	v.SetDefault("traversal.include_library_implementations", defaults.IncludeLibraryImplementations)
	v.SetDefault("traversal.filter_unused_params", defaults.FilterUnusedParams)

	v.SetDefault("filters.exclude", []string{})
	v.SetDefault("filters.skip_accessors", defaults.Filters.SkipAccessors)
	v.SetDefault("filters.skip_to_string", defaults.Filters.SkipToString)
	v.SetDefault("filters.skip_equals_hash_code", defaults.Filters.SkipEqualsHashCode)

	v.SetDefault("di.match_by_name", defaults.MatchByName)

	v.SetDefault("cache.dir", filepath.Join(".calleagle", "facts"))

	v.SetDefault("watch.exclude", []string{
		"**/.git/**",
		"**/target/**",
		"**/build/**",
		"**/node_modules/**",
	})
}
