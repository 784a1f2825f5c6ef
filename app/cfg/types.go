package cfg

import "time"

const (
	CommandServe  = "serve"
	CommandScan   = "scan"
	CommandReport = "report"
	CommandPrune  = "prune"
)

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	ConfigFile     string
	Port           string
	WorkerCount    int
	ScanSchedule   string
	PruneSchedule  string
	ReportSchedule string
	ScanHours      int
	RetentionDays  int
	ReportDir      string
	APIAccessKey   string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string

	Command string
}

// Retention returns the maximum article age kept by pruning
func (c *Cfg) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
