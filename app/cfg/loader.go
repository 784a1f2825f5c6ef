package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/monitor.db" description:"SQLite database file"`

	// Application configuration
	ConfigFile     string `long:"config" env:"MONITOR_CONFIG" description:"Monitor configuration file (built-in configuration when empty)"`
	Port           string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount    int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers"`
	ScanSchedule   string `long:"scan-schedule" env:"SCAN_SCHEDULE" default:"*/30 * * * *" description:"Cron schedule for feed scans"`
	PruneSchedule  string `long:"prune-schedule" env:"PRUNE_SCHEDULE" default:"@daily" description:"Cron schedule for retention pruning"`
	ReportSchedule string `long:"report-schedule" env:"REPORT_SCHEDULE" default:"0 8 * * 1" description:"Cron schedule for the weekly report"`
	ScanHours      int    `long:"scan-hours" env:"SCAN_HOURS" default:"24" description:"Trailing window in hours covered by a scan"`
	RetentionDays  int    `long:"retention-days" env:"RETENTION_DAYS" default:"90" description:"Articles older than this are pruned"`
	ReportDir      string `long:"report-dir" env:"REPORT_DIR" default:"./reports" description:"Directory for compiled weekly reports"`
	APIAccessKey   string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Media Monitor/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Amsterdam)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		Command string `positional-arg-name:"command" description:"serve (default), scan, report or prune"`
	} `positional-args:"yes"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns nil, nil when help
// was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:         raw.DBPath,
		ConfigFile:     raw.ConfigFile,
		Port:           raw.Port,
		WorkerCount:    raw.WorkerCount,
		ScanSchedule:   raw.ScanSchedule,
		PruneSchedule:  raw.PruneSchedule,
		ReportSchedule: raw.ReportSchedule,
		ScanHours:      raw.ScanHours,
		RetentionDays:  raw.RetentionDays,
		ReportDir:      raw.ReportDir,
		APIAccessKey:   raw.APIAccessKey,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
		Command:        cmp.Or(raw.Args.Command, CommandServe),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	switch cfg.Command {
	case CommandServe, CommandScan, CommandReport, CommandPrune:
	default:
		return fmt.Errorf("unknown command: %s", cfg.Command)
	}

	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive")
	}
	if cfg.ScanHours < 1 {
		return fmt.Errorf("scan hours must be positive")
	}
	if cfg.RetentionDays < 1 {
		return fmt.Errorf("retention days must be positive")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
