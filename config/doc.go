// Package config loads the separator configuration from yaml with environment
// overrides, and builds the zap logger the commands use.
package config
