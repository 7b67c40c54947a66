// Package output renders command results.
//
// Every result can be printed as a table, JSON or YAML. Results that know
// how to lay themselves out as rows implement Tabler; anything else falls
// back to YAML in table mode. Status lines use fatih/color, which turns
// itself off when stdout is not a terminal or NO_COLOR is set.
package output
