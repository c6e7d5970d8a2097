// Package config loads the todoagent configuration from a YAML file,
// TODOAGENT_* environment variables and an optional .env file.
package config
