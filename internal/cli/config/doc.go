// Package config provides the kvopts command configuration.
//
// Values come from, in increasing precedence: the defaults, a YAML file
// (~/.kvopts/cli.yaml unless --config names another), KVOPTS_ environment
// variables (KVOPTS_LOG__LEVEL sets log.level) and explicitly set flags.
// The merged result is validated before any command runs.
package config
