package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"linkctl/pkg/logging"
)

// EnvFileName is the dotenv file loaded from beside a config file.
const EnvFileName = ".env"

// LoadDotEnv loads the .env file in dir into the process environment so config
// files can reference its variables as ${NAME}. Variables that are already set
// win over the file. A missing file is not an error.
func LoadDotEnv(dir string) error {
	envPath := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return err
	}
	logging.Debug("Config", "Loaded environment from %s", envPath)
	return nil
}
