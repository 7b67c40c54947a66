// Package command provides the kvopts command definitions.
//
// It uses urfave/cli/v2 for command parsing. The root Before hook merges
// the CLI configuration (defaults, config file, KVOPTS_ environment, flags)
// and builds the logger; every command reads both back from the app
// metadata.
package command
