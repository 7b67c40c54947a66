// Package confloader loads the kvopts CLI configuration and watches files
// for changes.
//
// Configuration is layered with koanf. Later sources override earlier ones:
//
//  1. Default values (set on the target struct before loading)
//  2. YAML configuration file
//  3. Environment variables (KVOPTS_ prefix)
//  4. Command-line flags, applied with LoadMap
//
// The Watcher reports writes to specific files. It watches the parent
// directory so that editors and tools which replace a file by renaming a
// new one over it are still seen.
package confloader
