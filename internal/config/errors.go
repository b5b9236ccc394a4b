package config

import "errors"

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// ErrLoadConfig wraps failures reading the .env file, the YAML file or the environment.
var ErrLoadConfig = errors.New("load config failed")
