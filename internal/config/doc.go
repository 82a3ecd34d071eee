// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Every section is optional; LoadWithDefaults fills the gaps with the Default*
// values and Default returns a complete configuration without a file.
package config
