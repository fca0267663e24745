// Package config defines the sentinel settings and provides helpers to load,
// validate and save them in YAML format.
//
// Validate fills every missing value with the defaults of the reference
// installation (2s switch polling, 250ms debounce, 45s close timeout, a
// 17:00–06:00 suspicious window) so an almost empty file is a working
// configuration.
package config
