package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/golobby/cast"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FIRMOD"

type Config struct {
	Listen         string                 `yaml:"listen" toml:"listen" env:"LISTEN" validate:"omitempty,hostname_port"`
	UpdateSchedule string                 `yaml:"update-schedule" toml:"update-schedule" env:"UPDATE_SCHEDULE" validate:"omitempty,cronspec"`
	Watch          bool                   `yaml:"watch" toml:"watch" env:"WATCH"`
	Username       string                 `yaml:"username" toml:"username" env:"USERNAME" validate:"required_with=Password"`
	Password       string                 `yaml:"password" toml:"password" env:"PASSWORD" validate:"required_with=Username"`
	Discord        *DiscordBotConfig      `yaml:"discord" toml:"discord"`
	Module         map[string]interface{} `yaml:"module" toml:"module"`
}

func decodeConfigFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()
	config := Config{}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".toml":
		_, err = toml.NewDecoder(file).Decode(&config)
		if err != nil {
			return nil, fmt.Errorf("error decoding TOML file %q: %w", filePath, err)
		}
	default:
		decoder := yaml.NewDecoder(file)
		err = decoder.Decode(&config)
		if err != nil {
			return nil, fmt.Errorf("error decoding YAML file %q: %w", filePath, err)
		}
	}
	return &config, nil
}

// applyEnvironment overrides scalar fields tagged with env from FIRMOD_* variables.
func applyEnvironment(config *Config) error {
	rv := reflect.ValueOf(config).Elem()
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		envTag, ok := rt.Field(i).Tag.Lookup("env")
		if !ok {
			continue
		}
		envName := envPrefix + "_" + strings.ToUpper(envTag)
		envValue, ok := os.LookupEnv(envName)
		if !ok || envValue == "" {
			continue
		}
		field := rv.Field(i)
		converted, err := cast.FromType(envValue, field.Type())
		if err != nil {
			return fmt.Errorf("cannot convert %s to type %v: %w", envName, field.Type(), err)
		}
		field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return validate
}

func loadConfig(filePath string) (*Config, error) {
	config, err := decodeConfigFile(filePath)
	if err != nil {
		return nil, err
	}
	err = applyEnvironment(config)
	if err != nil {
		return nil, fmt.Errorf("error applying environment overrides: %w", err)
	}
	err = newValidator().Struct(config)
	if err != nil {
		return nil, fmt.Errorf("error during configuration validation: %w", err)
	}
	return config, nil
}

func parseConfigFile(filePath string) *Config {
	config, err := loadConfig(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration file %q: %s\n", filePath, err)
		os.Exit(1)
	}
	return config
}
