// Package config loads, validates, and watches the ceres configuration.
//
// Configuration is YAML with defaults applied for unset fields and CERES_*
// environment variable overrides taking precedence over the file. The
// Watcher reloads the file on change with debouncing; a reload that fails to
// parse or validate keeps the previous configuration in effect.
package config
