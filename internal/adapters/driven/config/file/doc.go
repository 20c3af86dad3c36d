// Package file provides a TOML-backed configuration store.
package file
