// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mpsplit/mpsplit/internal/eligibility"
	"github.com/mpsplit/mpsplit/internal/srcrewrite"
)

const (
	// PlatformWeixin is the platform whose output is split into deferred loads.
	PlatformWeixin Platform = "mp-weixin"

	// DefaultDebounce is the quiet period before watch mode re-runs a build.
	DefaultDebounce = 300 * time.Millisecond

	maxConcurrency = 1024
)

var (
	// ErrInvalidPlatform is returned when a Platform value is empty or blank.
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrInvalidPrimitive is the sentinel error wrapped by InvalidPrimitiveError.
	ErrInvalidPrimitive = errors.New("invalid deferred primitive")
	// ErrInvalidExcludeConfig is the sentinel error wrapped by InvalidExcludeConfigError.
	ErrInvalidExcludeConfig = errors.New("invalid exclude config")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	primitivePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)
)

type (
	// Platform names the build target (for example "mp-weixin").
	Platform string

	// InvalidPlatformError is returned when a Platform value is blank.
	// It wraps ErrInvalidPlatform for errors.Is() compatibility.
	InvalidPlatformError struct {
		Value Platform
	}

	// InvalidPrimitiveError is returned when the deferred primitive is not a
	// dotted identifier path such as "require.async".
	InvalidPrimitiveError struct {
		Value string
	}

	// InvalidExcludeConfigError collects exclusion field errors.
	InvalidExcludeConfigError struct {
		FieldErrors []error
	}

	// InvalidWatchConfigError collects watch field errors.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Platform is the active build platform. Only "mp-weixin" output is rewritten.
		Platform Platform `json:"platform" mapstructure:"platform"`
		// ProjectRoot anchors root-relative imports. Empty means the output root.
		ProjectRoot string `json:"project_root" mapstructure:"project_root"`
		// InputDir is the target of the "@/" import alias.
		InputDir string `json:"input_dir" mapstructure:"input_dir"`
		// OutputDir is the emitted tree to rewrite.
		OutputDir string `json:"output_dir" mapstructure:"output_dir"`
		// DeferredPrimitive is the call emitted for cross-package loads.
		DeferredPrimitive string `json:"deferred_primitive" mapstructure:"deferred_primitive"`
		// Concurrency bounds parallel rewrites. Zero means one worker per CPU.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
		// Aliases maps import prefixes to directories.
		Aliases map[string]string `json:"aliases" mapstructure:"aliases"`
		// Exclude configures which modules are never rewritten.
		Exclude ExcludeConfig `json:"exclude" mapstructure:"exclude"`
		// Watch configures watch mode.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// ExcludeConfig lists module exclusions.
	ExcludeConfig struct {
		Dirs       []string `json:"dirs" mapstructure:"dirs"`
		Globs      []string `json:"globs" mapstructure:"globs"`
		Extensions []string `json:"extensions" mapstructure:"extensions"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is the quiet period after the last change before rebuilding.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists doublestar patterns of paths that never trigger a rebuild.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}
)

// String returns the platform name.
func (p Platform) String() string { return string(p) }

// IsValid returns whether the platform is non-blank.
func (p Platform) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidPlatformError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidPlatformError) Error() string {
	return fmt.Sprintf("invalid platform %q: must not be empty", e.Value)
}

// Unwrap returns ErrInvalidPlatform for errors.Is() compatibility.
func (e *InvalidPlatformError) Unwrap() error { return ErrInvalidPlatform }

// Error implements the error interface.
func (e *InvalidPrimitiveError) Error() string {
	return fmt.Sprintf("invalid deferred primitive %q: must be a dotted identifier path", e.Value)
}

// Unwrap returns ErrInvalidPrimitive for errors.Is() compatibility.
func (e *InvalidPrimitiveError) Unwrap() error { return ErrInvalidPrimitive }

// IsValid checks every exclusion glob.
func (c ExcludeConfig) IsValid() (bool, []error) {
	var errs []error
	for _, g := range c.Globs {
		if !doublestar.ValidatePattern(g) {
			errs = append(errs, fmt.Errorf("exclude.globs: invalid pattern %q", g))
		}
	}
	for _, d := range c.Dirs {
		if strings.TrimSpace(d) == "" {
			errs = append(errs, errors.New("exclude.dirs: empty entry"))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidExcludeConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidExcludeConfigError) Error() string {
	return fmt.Sprintf("invalid exclude config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidExcludeConfig for errors.Is() compatibility.
func (e *InvalidExcludeConfigError) Unwrap() error { return ErrInvalidExcludeConfig }

// IsValid checks the debounce and ignore patterns.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative, got %s", c.Debounce))
	}
	for _, g := range c.Ignore {
		if !doublestar.ValidatePattern(g) {
			errs = append(errs, fmt.Errorf("watch.ignore: invalid pattern %q", g))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid returns whether the Config has valid fields. Nested sections
// report through their own typed errors.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Platform.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if !primitivePattern.MatchString(c.DeferredPrimitive) {
		errs = append(errs, &InvalidPrimitiveError{Value: c.DeferredPrimitive})
	}
	if c.Concurrency < 0 || c.Concurrency > maxConcurrency {
		errs = append(errs, fmt.Errorf("concurrency: must be between 0 and %d, got %d", maxConcurrency, c.Concurrency))
	}
	for prefix, target := range c.Aliases {
		if prefix == "" || strings.TrimSpace(target) == "" {
			errs = append(errs, fmt.Errorf("aliases: %q must map a non-empty prefix to a directory", prefix))
		}
	}
	if valid, fieldErrs := c.Exclude.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the first IsValid error, or nil.
func (c Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// ExclusionOptions converts the exclude section into filter options.
func (c Config) ExclusionOptions() eligibility.Options {
	return eligibility.Options{
		ExcludeDirs:       c.Exclude.Dirs,
		ExcludeGlobs:      c.Exclude.Globs,
		ExcludeExtensions: c.Exclude.Extensions,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	excl := eligibility.DefaultOptions()
	return &Config{
		Platform:          PlatformWeixin,
		OutputDir:         "dist/build/mp-weixin",
		DeferredPrimitive: srcrewrite.DefaultPrimitive,
		Concurrency:       0,
		Aliases:           map[string]string{},
		Exclude: ExcludeConfig{
			Dirs:       excl.ExcludeDirs,
			Globs:      excl.ExcludeGlobs,
			Extensions: []string{},
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []string{},
		},
	}
}
