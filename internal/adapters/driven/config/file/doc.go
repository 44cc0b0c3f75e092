// Package file provides file-based configuration: a TOML config file and
// user-editable prompt templates with change detection.
package file
