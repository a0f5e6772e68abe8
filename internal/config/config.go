package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/edp1096/resistor-network/internal/consts"
	"github.com/joho/godotenv"
)

type Config struct {
	Solver SolverConfig
	App    AppConfig
}

type SolverConfig struct {
	Tolerance    float64
	MaxIter      int
	InitialGuess float64
}

type AppConfig struct {
	LogLevel string
}

// Load reads .env from the working directory when present, then the
// environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with explicit env files. Missing files are skipped;
// variables already set in the environment win over file values.
func LoadFrom(filenames ...string) (*Config, error) {
	for _, filename := range filenames {
		if err := godotenv.Load(filename); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("loading %s: %v", filename, err)
		}
	}

	cfg := &Config{
		Solver: SolverConfig{
			Tolerance:    getEnvAsFloat("KVL_TOLERANCE", consts.TOLERANCE),
			MaxIter:      getEnvAsInt("KVL_MAX_ITER", consts.MAX_ITER),
			InitialGuess: getEnvAsFloat("KVL_INITIAL_GUESS", consts.INITIAL_GUESS),
		},
		App: AppConfig{
			LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if !(c.Solver.Tolerance > 0) {
		return fmt.Errorf("KVL_TOLERANCE must be positive, got %g", c.Solver.Tolerance)
	}
	if c.Solver.MaxIter <= 0 {
		return fmt.Errorf("KVL_MAX_ITER must be positive, got %d", c.Solver.MaxIter)
	}

	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.App.LogLevel)
	}

	return nil
}

func (c *Config) Debug() bool {
	return c.App.LogLevel == "debug"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}
