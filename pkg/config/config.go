package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port     string         `mapstructure:"port"`
	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Presence PresenceConfig `mapstructure:"presence"`
}

// PresenceConfig presence marker and missed-event queue retention
type PresenceConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	MissedEventCap int64         `mapstructure:"missed_event_cap"`
	MissedEventTTL time.Duration `mapstructure:"missed_event_ttl"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// Defaults applied when the presence section is absent from the YAML.
const (
	DefaultPresenceTTL    = 24 * time.Hour
	DefaultMissedEventCap = 100
	DefaultMissedEventTTL = 7 * 24 * time.Hour
)

// ApplyDefaults fills zero-valued presence settings.
func (p *PresenceConfig) ApplyDefaults() {
	if p.TTL <= 0 {
		p.TTL = DefaultPresenceTTL
	}
	if p.MissedEventCap <= 0 {
		p.MissedEventCap = DefaultMissedEventCap
	}
	if p.MissedEventTTL <= 0 {
		p.MissedEventTTL = DefaultMissedEventTTL
	}
}
