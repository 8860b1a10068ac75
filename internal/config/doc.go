// Package config loads and validates engine configuration.
//
// Non-secret settings come from a YAML file with ${VAR} expansion; login
// credentials come from the environment and are injected explicitly into
// the terminal client constructor.
package config
