package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	Queue   QueueConfig
	Maps    MapsConfig
	Advisor AdvisorConfig
	Planner PlannerConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	Stream        string
	ConsumerGroup string
	PollInterval  time.Duration
	JobTTL        time.Duration
}

type MapsConfig struct {
	BaseURL         string
	SubscriptionKey string
	Timeout         time.Duration
}

type AdvisorConfig struct {
	Provider       string // "openai" or "gemini"
	APIKey         string
	Model          string
	EmbeddingModel string
}

type PlannerConfig struct {
	MaxPois                int
	DwellFloorMinutes      int
	DwellCeilingMinutes    int
	MinExploreMinutes      int
	ArrivalOffsetMinutes   int
	UseIsochrone           bool
	OpeningHoursStrict     bool
	CategorySearchLimit    int
	MaxRelevantCategories  int
	AvgSpeedWalkingKmh     float64
	AvgSpeedTransitKmh     float64
	AvgSpeedDrivingKmh     float64
	DefaultDwellByCategory map[string]int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Missing .env is fine in containerized deployments where everything
	// arrives through the environment.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Queue: QueueConfig{
			Stream:        viper.GetString("QUEUE_STREAM"),
			ConsumerGroup: viper.GetString("QUEUE_CONSUMER_GROUP"),
			PollInterval:  time.Duration(viper.GetInt("QUEUE_POLL_INTERVAL_MS")) * time.Millisecond,
			JobTTL:        time.Duration(viper.GetInt("JOB_TTL_MINUTES")) * time.Minute,
		},
		Maps: MapsConfig{
			BaseURL:         viper.GetString("MAPS_BASE_URL"),
			SubscriptionKey: viper.GetString("MAPS_SUBSCRIPTION_KEY"),
			Timeout:         time.Duration(viper.GetInt("MAPS_TIMEOUT_MS")) * time.Millisecond,
		},
		Advisor: AdvisorConfig{
			Provider:       strings.ToLower(viper.GetString("ADVISOR_PROVIDER")),
			APIKey:         viper.GetString("ADVISOR_API_KEY"),
			Model:          viper.GetString("ADVISOR_MODEL"),
			EmbeddingModel: viper.GetString("ADVISOR_EMBEDDING_MODEL"),
		},
		Planner: PlannerConfig{
			MaxPois:               viper.GetInt("PLANNER_MAX_POIS"),
			DwellFloorMinutes:     viper.GetInt("PLANNER_DWELL_FLOOR_MINUTES"),
			DwellCeilingMinutes:   viper.GetInt("PLANNER_DWELL_CEILING_MINUTES"),
			MinExploreMinutes:     viper.GetInt("PLANNER_MIN_EXPLORE_MINUTES"),
			ArrivalOffsetMinutes:  viper.GetInt("PLANNER_ARRIVAL_OFFSET_MINUTES"),
			UseIsochrone:          viper.GetBool("PLANNER_USE_ISOCHRONE"),
			OpeningHoursStrict:    viper.GetBool("PLANNER_OPENING_HOURS_STRICT"),
			CategorySearchLimit:   viper.GetInt("PLANNER_CATEGORY_SEARCH_LIMIT"),
			MaxRelevantCategories: viper.GetInt("PLANNER_MAX_RELEVANT_CATEGORIES"),
			AvgSpeedWalkingKmh:    viper.GetFloat64("PLANNER_AVG_SPEED_WALKING_KMH"),
			AvgSpeedTransitKmh:    viper.GetFloat64("PLANNER_AVG_SPEED_TRANSIT_KMH"),
			AvgSpeedDrivingKmh:    viper.GetFloat64("PLANNER_AVG_SPEED_DRIVING_KMH"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Queue.Stream == "" {
		cfg.Queue.Stream = "itinerary:jobs"
	}
	if cfg.Queue.ConsumerGroup == "" {
		cfg.Queue.ConsumerGroup = "itinerary-planners"
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = time.Second
	}
	if cfg.Queue.JobTTL == 0 {
		cfg.Queue.JobTTL = 30 * time.Minute
	}
	if cfg.Maps.BaseURL == "" {
		cfg.Maps.BaseURL = "https://atlas.microsoft.com"
	}
	if cfg.Maps.Timeout == 0 {
		cfg.Maps.Timeout = 15 * time.Second
	}
	if cfg.Advisor.Provider == "" {
		cfg.Advisor.Provider = "openai"
	}
	if cfg.Advisor.EmbeddingModel == "" {
		cfg.Advisor.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	p := &cfg.Planner
	if p.MaxPois == 0 {
		p.MaxPois = 6
	}
	if p.DwellFloorMinutes == 0 {
		p.DwellFloorMinutes = 20
	}
	if p.DwellCeilingMinutes == 0 {
		p.DwellCeilingMinutes = 180
	}
	if p.MinExploreMinutes == 0 {
		p.MinExploreMinutes = 30
	}
	if p.ArrivalOffsetMinutes == 0 {
		p.ArrivalOffsetMinutes = 30
	}
	if p.CategorySearchLimit == 0 {
		p.CategorySearchLimit = 10
	}
	if p.MaxRelevantCategories == 0 {
		p.MaxRelevantCategories = 50
	}
	if p.AvgSpeedWalkingKmh == 0 {
		p.AvgSpeedWalkingKmh = 4.5
	}
	if p.AvgSpeedTransitKmh == 0 {
		p.AvgSpeedTransitKmh = 20
	}
	if p.AvgSpeedDrivingKmh == 0 {
		p.AvgSpeedDrivingKmh = 40
	}
	if p.DefaultDwellByCategory == nil {
		p.DefaultDwellByCategory = map[string]int{
			"museum":     120,
			"restaurant": 90,
			"attraction": 60,
			"shop":       30,
		}
	}
}

// AvgSpeedKmh returns the configured average speed for a travel mode string.
func (p PlannerConfig) AvgSpeedKmh(mode string) float64 {
	switch mode {
	case "walking":
		return p.AvgSpeedWalkingKmh
	case "transit":
		return p.AvgSpeedTransitKmh
	case "driving":
		return p.AvgSpeedDrivingKmh
	default:
		return p.AvgSpeedWalkingKmh
	}
}

// DefaultDwellMinutes is the static dwell fallback used when the advisor is
// unavailable. Category matching is by substring, lowercase.
func (p PlannerConfig) DefaultDwellMinutes(category string) int {
	lower := strings.ToLower(category)
	for key, minutes := range p.DefaultDwellByCategory {
		if strings.Contains(lower, key) {
			return minutes
		}
	}
	return 60
}
