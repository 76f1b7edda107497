package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Create new config instance
func NewConfig() *Config {
	return &Config{}
}

// Read loads an optional .env file, then the json config file (if any), then
// the environment, which overrides the file. The result is validated.
func (c *Config) Read(file string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var err error
	if file != "" {
		if _, statErr := os.Stat(file); statErr == nil {
			err = cleanenv.ReadConfig(file, c)
		} else {
			err = cleanenv.ReadEnv(c)
		}
	} else {
		err = cleanenv.ReadEnv(c)
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
