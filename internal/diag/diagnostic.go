// SPDX-License-Identifier: MPL-2.0

package diag

import (
	"fmt"
	"log/slog"
)

const (
	// SeverityInfo marks a diagnostic that needs no action.
	SeverityInfo Severity = "info"
	// SeverityWarning indicates a recoverable condition; the affected edge or
	// file was passed through unchanged.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a unit of work that failed. The rest of the
	// build still ran.
	SeverityError Severity = "error"
)

// Diagnostic codes emitted by the rewriters and the build pipeline.
const (
	CodeAppManifestInvalid      = "app_manifest_invalid"
	CodeAppManifestMissing      = "app_manifest_missing"
	CodeSubpackageRootMissing   = "subpackage_root_missing"
	CodeSubpackageRootOverlap   = "subpackage_root_overlap"
	CodeManifestParseFailed     = "manifest_parse_failed"
	CodeImportUnresolved        = "import_unresolved"
	CodeCrossPackageSyncBinding = "cross_package_sync_binding"
	CodeModuleParseFailed       = "module_parse_failed"
	CodePlatformInactive        = "platform_inactive"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic represents a structured, non-fatal finding.
	Diagnostic struct {
		// Severity is the diagnostic level.
		Severity Severity
		// Code is a machine-readable identifier (e.g., "import_unresolved").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// Warning builds a warning diagnostic.
func Warning(code, path, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Error builds an error diagnostic wrapping cause.
func Error(code, path string, cause error) Diagnostic {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return Diagnostic{Severity: SeverityError, Code: code, Path: path, Message: msg, Cause: cause}
}

// WithCause returns a copy of d carrying cause.
func (d Diagnostic) WithCause(cause error) Diagnostic {
	d.Cause = cause
	return d
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.Path, d.Message)
}

// Level maps the severity onto a slog level.
func (d Diagnostic) Level() slog.Level {
	switch d.Severity {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogAttrs returns the attributes used when the diagnostic is logged.
func (d Diagnostic) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("code", d.Code)}
	if d.Path != "" {
		attrs = append(attrs, slog.String("path", d.Path))
	}
	if d.Cause != nil {
		attrs = append(attrs, slog.Any("error", d.Cause))
	}
	return attrs
}
