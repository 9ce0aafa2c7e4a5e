package environment

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Production defines the prod environment
const Production = "prod"

// Staging defines the staging environment
const Staging = "staging"

// Dev defines the dev environment
const Dev = "dev"

// Storage backends
const (
	StorageMemory = "memory"
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

// Environment holds the process configuration
type Environment struct {
	Environment   string `mapstructure:"APP_ENV"`
	Port          string `mapstructure:"PORT"`
	Secret        string `mapstructure:"SECRET"`
	Cors          string `mapstructure:"CORS"`
	Storage       string `mapstructure:"STORAGE"`
	StoragePath   string `mapstructure:"STORAGE_PATH"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	Database      string `mapstructure:"DATABASE"`
	Redis         string `mapstructure:"REDIS"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	CorsProxy     string `mapstructure:"CORS_PROXY"`
	Classes       string `mapstructure:"CLASSES"`
	TimeZone      string `mapstructure:"TIMEZONE"`
	GCPProjectID  string `mapstructure:"GCP_PROJECT_ID"`
}

var defaults = map[string]string{
	"APP_ENV":      Dev,
	"PORT":         "8080",
	"SECRET":       "local",
	"CORS":         "*",
	"STORAGE":      StorageBolt,
	"STORAGE_PATH": "data/tracker.db",
	"DATABASE":     "tracker",
	"TIMEZONE":     "Local",
}

// Load reads the given .env files (missing files are skipped), overlays the process environment and decodes
// everything into an Environment. Process variables win over file values.
func Load(files ...string) (*Environment, error) {
	data := map[string]string{}
	for key, value := range defaults {
		data[key] = value
	}

	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				continue
			}
			return nil, errors.Wrapf(err, "could not read %s", file)
		}

		for key, value := range values {
			data[key] = value
		}
	}

	for _, pair := range os.Environ() {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		data[parts[0]] = parts[1]
	}

	env := Environment{}
	err := mapstructure.Decode(data, &env)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode environment")
	}

	return &env, nil
}

// ClassList splits the comma separated CLASSES value
func (e *Environment) ClassList() []string {
	var classes []string
	for _, class := range strings.Split(e.Classes, ",") {
		class = strings.TrimSpace(class)
		if class != "" {
			classes = append(classes, class)
		}
	}

	return classes
}

// IsProduction tells if APP_ENV is prod
func (e *Environment) IsProduction() bool {
	return e.Environment == Production
}
