package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"telegram-campaign-engine/internal/biz/usecase"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Reply  ReplyPrompts  `yaml:"reply"`
	Canned CannedPrompts `yaml:"canned"`
}

// ReplyPrompts contains prompt assembly markers
type ReplyPrompts struct {
	HistoryMarker  string `yaml:"history_marker"`
	CurrentMarker  string `yaml:"current_marker"`
	ExamplesHeader string `yaml:"examples_header"`
}

// CannedPrompts contains fallback reply settings used when every
// provider in the chain fails
type CannedPrompts struct {
	Generic string              `yaml:"generic"`
	Cues    map[string][]string `yaml:"cues"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"./configs/prompts.yaml",
			"/etc/campaign-engine/prompts.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
		// Add path relative to working directory
		if wd, err := os.Getwd(); err == nil {
			paths = append(paths, filepath.Join(wd, "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}

	if data == nil {
		// Return default config if no file found
		return DefaultPromptsConfig(), nil
	}

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	// Fill in defaults for empty values
	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Reply.HistoryMarker == "" {
		c.Reply.HistoryMarker = defaults.Reply.HistoryMarker
	}
	if c.Reply.CurrentMarker == "" {
		c.Reply.CurrentMarker = defaults.Reply.CurrentMarker
	}
	if c.Reply.ExamplesHeader == "" {
		c.Reply.ExamplesHeader = defaults.Reply.ExamplesHeader
	}

	if c.Canned.Generic == "" {
		c.Canned.Generic = defaults.Canned.Generic
	}
	if len(c.Canned.Cues) == 0 {
		c.Canned.Cues = defaults.Canned.Cues
	}
}

// ToPromptConfig converts to prompt builder configuration
func (c *Config) ToPromptConfig() usecase.PromptConfig {
	if c.Prompts == nil {
		return usecase.DefaultPromptConfig
	}
	return usecase.PromptConfig{
		HistoryMarker:  c.Prompts.Reply.HistoryMarker,
		CurrentMarker:  c.Prompts.Reply.CurrentMarker,
		ExamplesHeader: c.Prompts.Reply.ExamplesHeader,
	}
}

// ToCannedConfig converts to canned fallback configuration
func (c *Config) ToCannedConfig() usecase.CannedConfig {
	if c.Prompts == nil {
		return usecase.DefaultCannedConfig
	}
	return usecase.CannedConfig{
		Generic: c.Prompts.Canned.Generic,
		Cues:    c.Prompts.Canned.Cues,
	}
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	canned := usecase.DefaultCannedConfig
	return &PromptsConfig{
		Reply: ReplyPrompts{
			HistoryMarker:  usecase.DefaultPromptConfig.HistoryMarker,
			CurrentMarker:  usecase.DefaultPromptConfig.CurrentMarker,
			ExamplesHeader: usecase.DefaultPromptConfig.ExamplesHeader,
		},
		Canned: CannedPrompts{
			Generic: canned.Generic,
			Cues:    canned.Cues,
		},
	}
}
