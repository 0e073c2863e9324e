package config

import (
	"os"
	"path/filepath"
)

// GetConfigPath determines the configuration file path.
// Priority:
// 1. --config command-line flag
// 2. IMGSYNC_CONFIG_PATH environment variable
// 3. config.yaml then config.json in the current working directory
// 4. config.yaml then config.json in the executable's directory
//
// A flag or env value pointing at a missing file is skipped.
func GetConfigPath(configFilePathFlag string) string {
	if configFilePathFlag != "" && fileExists(configFilePathFlag) {
		return configFilePathFlag
	}

	if envPath := os.Getenv(ConfigPathEnv); envPath != "" && fileExists(envPath) {
		return envPath
	}

	cwd, errCwd := os.Getwd()
	exePath, errExe := os.Executable()
	exeDir := ""
	if errExe == nil {
		exeDir = filepath.Dir(exePath)
	}

	defaultFiles := []string{"config.yaml", "config.json"}
	locations := []string{}

	if errCwd == nil {
		locations = append(locations, cwd)
	}
	if exeDir != "" && (errCwd != nil || exeDir != cwd) {
		locations = append(locations, exeDir)
	}

	for _, loc := range locations {
		for _, file := range defaultFiles {
			path := filepath.Join(loc, file)
			if fileExists(path) {
				return path
			}
		}
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
