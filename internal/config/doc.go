// Package config provides configuration loading and validation for the recorder client.
// It handles YAML-based configuration with struct validation and covers the server
// endpoint, audio capture format, upload, progress channel, and logging parameters.
package config
