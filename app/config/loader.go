package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultConfig []byte

// ErrInvalidConfig marks a structurally invalid configuration. Retrying an
// operation with the same configuration can never succeed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Loader handles loading and validation of the monitor configuration
type Loader struct {
	path string
}

// NewLoader creates a loader for the given file. An empty path selects the
// built-in configuration.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Load() (Config, error) {
	data := defaultConfig

	if l.path != "" {
		fileData, err := os.ReadFile(l.path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read file: %w", err)
		}
		data = fileData
	}

	config, err := Parse(data)
	if err != nil {
		return Config{}, err
	}

	slog.Debug("Monitor configuration loaded",
		"path", l.path,
		"sources", len(config.Sources),
		"topics", len(config.Topics),
		"bypass_services", len(config.Bypass))

	return config, nil
}

// Default returns the built-in configuration
func Default() Config {
	config, err := Parse(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("built-in configuration is invalid: %v", err))
	}
	return config
}

// Parse decodes YAML, applies defaults and validates the result
func Parse(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := Validate(config); err != nil {
		return Config{}, err
	}

	return config, nil
}

func setDefaults(config *Config) {
	d := &config.Defaults
	if d.Timeout == 0 {
		d.Timeout = 30
	}
	if d.Retries == 0 {
		d.Retries = 2
	}
	if d.Concurrency == 0 {
		d.Concurrency = 5
	}
	if d.MinContentLength == 0 {
		d.MinContentLength = 1000
	}
	if d.Representatives == 0 {
		d.Representatives = 3
	}
	if d.MinMentions == 0 {
		d.MinMentions = 3
	}
	if d.MinQuotes == 0 {
		d.MinQuotes = 2
	}
	if d.CacheTTL == 0 {
		d.CacheTTL = 300
	}
	if d.BackoffInitial == 0 {
		d.BackoffInitial = 500
	}

	a := &config.Attribution
	if a.Window == 0 {
		a.Window = 160
	}
	if a.MinQuoteLength == 0 {
		a.MinQuoteLength = 15
	}

	if config.DefaultAngle == "" {
		config.DefaultAngle = "De realiteit achter %s in Nederland"
	}

	s := &config.Suggestions
	if s.MinMentions == 0 {
		s.MinMentions = 2
	}
	if s.MentionWeight == 0 {
		s.MentionWeight = 0.5
	}
	if s.ExpertWeight == 0 {
		s.ExpertWeight = 2
	}
	if s.GrowthWeight == 0 {
		s.GrowthWeight = 0.01
	}
	if s.GrowthCap == 0 {
		s.GrowthCap = 3
	}
	if s.MaxGuests == 0 {
		s.MaxGuests = 3
	}

	for i := range config.Bypass {
		if config.Bypass[i].Timeout == 0 {
			config.Bypass[i].Timeout = d.Timeout
		}
		if config.Bypass[i].Method == "" {
			config.Bypass[i].Method = "GET"
		}
	}
}

// Validate reports the first structural problem found in config. Every
// returned error wraps ErrInvalidConfig.
func Validate(config Config) error {
	if err := validate(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func validate(config Config) error {
	if len(config.Sources) == 0 {
		return fmt.Errorf("at least one feed source is required")
	}

	sourceNames := make(map[string]bool, len(config.Sources))
	for i, source := range config.Sources {
		if source.Name == "" {
			return fmt.Errorf("source at index %d: name is required", i)
		}
		if sourceNames[source.Name] {
			return fmt.Errorf("duplicate source name: %s", source.Name)
		}
		sourceNames[source.Name] = true

		u, err := url.Parse(source.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source %s: invalid URL %q", source.Name, source.URL)
		}
	}

	if len(config.AIPatterns) == 0 {
		return fmt.Errorf("at least one AI pattern is required")
	}
	for _, pattern := range config.AIPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid AI pattern %q: %w", pattern, err)
		}
	}

	labels := make(map[string]bool, len(config.Topics))
	for i, topic := range config.Topics {
		if topic.Label == "" {
			return fmt.Errorf("topic at index %d: label is required", i)
		}
		key := strings.ToLower(topic.Label)
		if labels[key] {
			return fmt.Errorf("duplicate topic label: %s", topic.Label)
		}
		labels[key] = true
		if len(topic.Keywords) == 0 {
			return fmt.Errorf("topic %s: at least one keyword is required", topic.Label)
		}
	}

	if strings.Count(config.DefaultAngle, "%s") != 1 {
		return fmt.Errorf("default angle must contain exactly one %%s placeholder")
	}

	for i, service := range config.Bypass {
		if service.Name == "" {
			return fmt.Errorf("bypass service at index %d: name is required", i)
		}
		method := service.GetMethod()
		if method != "GET" && method != "POST" {
			return fmt.Errorf("bypass service %s: unsupported method %s", service.Name, service.Method)
		}
		// POST services receive the target as a form value instead
		if method == "GET" && !strings.Contains(service.URL, "{url}") {
			return fmt.Errorf("bypass service %s: URL template must contain {url}", service.Name)
		}
		if service.Timeout < 0 || service.Retries < 0 {
			return fmt.Errorf("bypass service %s: timeout and retries must be non-negative", service.Name)
		}
	}

	nonNegativeFields := map[string]float64{
		"timeout":            float64(config.Defaults.Timeout),
		"retries":            float64(config.Defaults.Retries),
		"rate limit":         config.Defaults.RateLimit,
		"concurrency":        float64(config.Defaults.Concurrency),
		"min content length": float64(config.Defaults.MinContentLength),
		"representatives":    float64(config.Defaults.Representatives),
		"min mentions":       float64(config.Defaults.MinMentions),
		"min quotes":         float64(config.Defaults.MinQuotes),
		"attribution window": float64(config.Attribution.Window),
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}
