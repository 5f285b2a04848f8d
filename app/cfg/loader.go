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
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/cards.db" description:"SQLite database file"`

	// Application configuration
	HostsDir          string `long:"hosts-dir" env:"HOSTS_DIR" default:"./hosts" description:"Directory containing host delivery profiles"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://cards.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Session sweep interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Widget sessions
	SessionTTL      int `long:"session-ttl" env:"SESSION_TTL" default:"3600" description:"Seconds an idle widget session is kept"`
	SessionCapacity int `long:"session-capacity" env:"SESSION_CAPACITY" default:"10000" description:"Maximum number of widget sessions held in memory"`
	OfferExpiry     int `long:"offer-expiry" env:"OFFER_EXPIRY" default:"900" description:"Seconds a result batch stays bookable"`
	IntentTTL       int `long:"intent-ttl" env:"INTENT_TTL" default:"3600" description:"Seconds a payment intent is reused for its checkout"`

	// Travel backend
	BackendURL   string `long:"backend-url" env:"BACKEND_URL" default:"http://localhost:8000" description:"Travel search and booking backend"`
	BackendToken string `long:"backend-token" env:"BACKEND_TOKEN" description:"Bearer token for the backend (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Trip Cards/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Australia/Sydney)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func parse(args []string) (*Cfg, error) {
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
		DBPath:            raw.DBPath,
		HostsDir:          raw.HostsDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		SessionTTL:        raw.SessionTTL,
		SessionCapacity:   raw.SessionCapacity,
		OfferExpiry:       raw.OfferExpiry,
		IntentTTL:         raw.IntentTTL,
		BackendURL:        raw.BackendURL,
		BackendToken:      raw.BackendToken,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Cfg) error {
	positiveFields := map[string]int{
		"worker count":       cfg.WorkerCount,
		"scheduler interval": cfg.SchedulerInterval,
		"session TTL":        cfg.SessionTTL,
		"session capacity":   cfg.SessionCapacity,
		"offer expiry":       cfg.OfferExpiry,
		"intent TTL":         cfg.IntentTTL,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}
	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
