/*
Package config loads application settings from .env files and the process
environment, and applies optional YAML table overrides to the entity
registry.
*/
package config
