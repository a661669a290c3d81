// Package config provides configuration structures and loaders for wbwatch.
// Settings come from the process environment (optionally seeded from a .env
// file); keyword filter mappings can be extended with a YAML file.
package config
