// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is read from the file named by --config, else from
// ~/.config/mpsplit/config.cue (XDG on Linux, ~/Library/Application Support/mpsplit
// on macOS, %APPDATA%\mpsplit on Windows), else from ./mpsplit.cue. Files are
// validated against the embedded CUE schema (config_schema.cue). MPSPLIT_*
// environment variables override file values; UNI_PLATFORM and UNI_INPUT_DIR
// are honored as exported by the uni-app build.
package config
