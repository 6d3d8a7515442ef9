package logging

import (
	"encoding/json"
	"strings"
)

// Config holds logging configuration.
type Config struct {
	Level        string   `json:"level"`
	TraceModules []string `json:"trace_modules"`
	LogDir       string   `json:"log_dir"`
}

// ApplyConfig applies the configuration to the logger, initializing
// the global logger on first call.
func ApplyConfig(config *Config) error {
	level, exists := levelFromString[strings.ToUpper(config.Level)]
	if !exists {
		level = INFO
	}
	return InitLogger(config.LogDir, level, config.TraceModules)
}

// GetConfigJSON returns the current logger configuration as JSON.
func GetConfigJSON() ([]byte, error) {
	logger := GetLogger()
	logger.mu.RLock()
	defer logger.mu.RUnlock()

	levelName := "UNKNOWN"
	if name, exists := levelNames[logger.level]; exists {
		levelName = name
	}

	traceModules := make([]string, 0, len(logger.traceModules))
	for module := range logger.traceModules {
		traceModules = append(traceModules, module)
	}

	config := Config{
		Level:        levelName,
		TraceModules: traceModules,
	}

	return json.Marshal(config)
}

// UpdateConfigFromJSON updates the running logger configuration from
// JSON. No HTTP route exposes it.
func UpdateConfigFromJSON(jsonData []byte) error {
	var config Config
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return err
	}

	logger := GetLogger()

	if config.Level != "" {
		if err := logger.SetLevelFromString(config.Level); err != nil {
			return err
		}
	}

	if len(config.TraceModules) > 0 {
		logger.mu.Lock()
		logger.traceModules = make(map[string]bool)
		for _, module := range config.TraceModules {
			logger.traceModules[strings.ToLower(module)] = true
		}
		logger.mu.Unlock()
	}

	return nil
}
