package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string

	// Application configuration
	HostsDir          string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Widget sessions
	SessionTTL      int
	SessionCapacity int
	OfferExpiry     int
	IntentTTL       int

	// Travel backend
	BackendURL   string
	BackendToken string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

func (c *Cfg) IntentTTLDuration() time.Duration {
	return time.Duration(c.IntentTTL) * time.Second
}

func (c *Cfg) SchedulerIntervalDuration() time.Duration {
	return time.Duration(c.SchedulerInterval) * time.Second
}
