// Package config loads, normalizes, and validates yoink's TOML
// configuration. Configuration is resolved from an explicit path, then
// ~/.config/yoink/config.toml, then ./yoink.toml, falling back to built-in
// defaults when no file exists.
package config
