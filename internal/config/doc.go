// Package config loads cmdbridge settings.
//
// Settings are layered: built-in defaults, then a TOML or YAML file, then
// CMDBRIDGE_* environment variables. A Watcher reports edits to the
// config file and to command scripts so they can be reloaded in place.
package config
