// Package config loads cramly settings from defaults, an optional YAML file,
// CRAMLY_ environment variables and command-line flags, in that order of
// precedence from lowest to highest.
package config
