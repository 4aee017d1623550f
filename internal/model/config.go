package model

// SystemConfig is the ingestion scheduling aggregate. Writes replace the
// whole stored object; there is no merge with the previously stored value.
type SystemConfig struct {
	ScheduleHour      int            `json:"schedule_hour"`
	ScheduleMinute    int            `json:"schedule_minute"`
	TimeframesToFetch map[string]int `json:"timeframes_to_fetch"`
}

// SystemConfigUpdate is the write schema for the system configuration. Fields
// omitted from the request fall back to the documented defaults, so a write
// always stores a complete aggregate.
type SystemConfigUpdate struct {
	ScheduleHour      *int           `json:"schedule_hour" binding:"omitempty,min=0,max=23"`
	ScheduleMinute    *int           `json:"schedule_minute" binding:"omitempty,min=0,max=59"`
	TimeframesToFetch map[string]int `json:"timeframes_to_fetch"`
}

// Resolve fills omitted fields with defaults and returns the full aggregate.
// A provided timeframe map replaces the default one outright.
func (u SystemConfigUpdate) Resolve() SystemConfig {
	cfg := DefaultSystemConfig()
	if u.ScheduleHour != nil {
		cfg.ScheduleHour = *u.ScheduleHour
	}
	if u.ScheduleMinute != nil {
		cfg.ScheduleMinute = *u.ScheduleMinute
	}
	if u.TimeframesToFetch != nil {
		cfg.TimeframesToFetch = u.TimeframesToFetch
	}
	return cfg
}

// DefaultSystemConfig returns the configuration used when nothing has been
// stored yet
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		ScheduleHour:   20,
		ScheduleMinute: 1,
		TimeframesToFetch: map[string]int{
			"1s":  7,
			"5s":  7,
			"10s": 7,
			"15s": 7,
			"30s": 7,
			"45s": 7,
			"1m":  180,
			"5m":  180,
			"10m": 180,
			"15m": 180,
			"30m": 180,
			"45m": 180,
			"1h":  180,
			"1d":  720,
		},
	}
}
