package config

import (
	"strings"
	"time"
)

// GetTimeout returns the default request timeout as time.Duration
func (d Defaults) GetTimeout() time.Duration {
	if d.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.Timeout) * time.Second
}

// GetCacheTTL returns how long fetched articles stay cached
func (d Defaults) GetCacheTTL() time.Duration {
	if d.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(d.CacheTTL) * time.Second
}

func (d Defaults) GetBackoffInitial() time.Duration {
	if d.BackoffInitial <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(d.BackoffInitial) * time.Millisecond
}

// GetTimeout returns the per-service timeout as time.Duration
func (s BypassService) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// GetMethod returns the upper-cased HTTP method, GET when unset
func (s BypassService) GetMethod() string {
	if s.Method == "" {
		return "GET"
	}
	return strings.ToUpper(s.Method)
}

// FindTopic looks a topic up by its label, ignoring case
func (c Config) FindTopic(label string) (Topic, bool) {
	for _, topic := range c.Topics {
		if strings.EqualFold(topic.Label, label) {
			return topic, true
		}
	}
	return Topic{}, false
}
