package config

// Config is the complete monitor configuration. It is loaded once at startup
// and passed by value into each component.
type Config struct {
	Sources      []Source          `yaml:"sources"`
	AIPatterns   []string          `yaml:"ai_patterns"`
	Topics       []Topic           `yaml:"topics"`
	Sentiment    Sentiment         `yaml:"sentiment"`
	Angles       []Angle           `yaml:"angles"`
	DefaultAngle string            `yaml:"default_angle"`
	Attribution  Attribution       `yaml:"attribution"`
	Bypass       []BypassService   `yaml:"bypass"`
	Defaults     Defaults          `yaml:"defaults"`
	Suggestions  SuggestionWeights `yaml:"suggestions"`
}

// Source is a single feed endpoint
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Topic is a labelled keyword bucket used for multi-label classification
type Topic struct {
	Label     string   `yaml:"label"`
	Keywords  []string `yaml:"keywords"`
	Questions []string `yaml:"questions"`
}

type Sentiment struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Angle maps a topic label fragment to a suggested discussion angle
type Angle struct {
	Match string `yaml:"match"`
	Angle string `yaml:"angle"`
}

// Attribution holds the rule tables used by the quote extractor
type Attribution struct {
	Verbs          []string `yaml:"verbs"`
	Leads          []string `yaml:"leads"`
	Particles      []string `yaml:"particles"`
	Stopwords      []string `yaml:"stopwords"`
	RoleWords      []string `yaml:"role_words"`
	Window         int      `yaml:"window"`           // runes around a quote searched for cues
	MinQuoteLength int      `yaml:"min_quote_length"` // runes
}

// BypassService is a paywall bypass endpoint. URL is a template where
// {url} is replaced verbatim with the target address, without escaping.
type BypassService struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Method   string `yaml:"method"`
	Priority int    `yaml:"priority"`
	Timeout  int    `yaml:"timeout"` // seconds
	Retries  int    `yaml:"retries"`
}

type Defaults struct {
	Timeout          int     `yaml:"timeout"`    // seconds
	Retries          int     `yaml:"retries"`
	RateLimit        float64 `yaml:"rate_limit"` // requests per second, 0 disables
	Concurrency      int     `yaml:"concurrency"`
	MinContentLength int     `yaml:"min_content_length"`
	Representatives  int     `yaml:"representatives"`
	MinMentions      int     `yaml:"min_mentions"`
	MinQuotes        int     `yaml:"min_quotes"`
	CacheTTL         int     `yaml:"cache_ttl"`       // seconds
	BackoffInitial   int     `yaml:"backoff_initial"` // milliseconds
}

// SuggestionWeights controls how urgency scores are computed
type SuggestionWeights struct {
	MinMentions   int     `yaml:"min_mentions"`
	MentionWeight float64 `yaml:"mention_weight"`
	ExpertWeight  float64 `yaml:"expert_weight"`
	GrowthWeight  float64 `yaml:"growth_weight"`
	GrowthCap     float64 `yaml:"growth_cap"`
	MaxGuests     int     `yaml:"max_guests"`
}
