package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quadrant-invest/geointel/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Proximity ProximityConfig `yaml:"proximity" mapstructure:"proximity"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Cluster   ClusterConfig   `yaml:"cluster" mapstructure:"cluster"`
	Intel     IntelConfig     `yaml:"intel" mapstructure:"intel"`
	Market    MarketConfig    `yaml:"market" mapstructure:"market"`
}

// StoreConfig configures the catalog backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, memory
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int `yaml:"port" mapstructure:"port"`
	RateLimitRPS   int `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ProximityConfig tunes the proximity analysis service.
type ProximityConfig struct {
	WalkingSpeedKMH float64            `yaml:"walking_speed_kmh" mapstructure:"walking_speed_kmh"`
	CyclingSpeedKMH float64            `yaml:"cycling_speed_kmh" mapstructure:"cycling_speed_kmh"`
	RouteFactor     float64            `yaml:"route_factor" mapstructure:"route_factor"` // street-network inefficiency over straight line
	SearchWindowKM  float64            `yaml:"search_window_km" mapstructure:"search_window_km"`
	NearestLimit    int                `yaml:"nearest_limit" mapstructure:"nearest_limit"`
	RadiusLadderKM  []float64          `yaml:"radius_ladder_km" mapstructure:"radius_ladder_km"`
	CategoryWeights map[string]float64 `yaml:"category_weights" mapstructure:"category_weights"`
}

// ScoringConfig tunes the neighborhood scoring engine.
type ScoringConfig struct {
	Concurrency        int                `yaml:"concurrency" mapstructure:"concurrency"`
	TransitRadiusKM    float64            `yaml:"transit_radius_km" mapstructure:"transit_radius_km"`
	UniversityRadiusKM float64            `yaml:"university_radius_km" mapstructure:"university_radius_km"`
	AmenityRadiusKM    float64            `yaml:"amenity_radius_km" mapstructure:"amenity_radius_km"`
	LeisureRadiusKM    float64            `yaml:"leisure_radius_km" mapstructure:"leisure_radius_km"`
	CompetitionRadius  float64            `yaml:"competition_radius_km" mapstructure:"competition_radius_km"`
	Weights            model.ScoreWeights `yaml:"weights" mapstructure:"weights"`
}

// ClusterConfig tunes the map clustering engine.
type ClusterConfig struct {
	BaseCellSizeDeg   float64 `yaml:"base_cell_size_deg" mapstructure:"base_cell_size_deg"`
	MinCellSizeDeg    float64 `yaml:"min_cell_size_deg" mapstructure:"min_cell_size_deg"`
	BaseZoom          int     `yaml:"base_zoom" mapstructure:"base_zoom"`
	FullDetailZoom    int     `yaml:"full_detail_zoom" mapstructure:"full_detail_zoom"`
	SingletonZoom     int     `yaml:"singleton_zoom" mapstructure:"singleton_zoom"`
	MinClusterSize    int     `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
	MaxSingletons     int     `yaml:"max_singletons" mapstructure:"max_singletons"`
	CacheTTLSecs      int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	CacheMaxEntries   int     `yaml:"cache_max_entries" mapstructure:"cache_max_entries"`
	MemberDetailLimit int     `yaml:"member_detail_limit" mapstructure:"member_detail_limit"`
}

// IntelConfig tunes the location intelligence orchestrator.
type IntelConfig struct {
	DefaultRadiusKM float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
	MinStudents     int     `yaml:"min_students" mapstructure:"min_students"`
	MaxDistanceKM   float64 `yaml:"max_distance_km" mapstructure:"max_distance_km"`
}

// MarketConfig tunes the market analysis engine.
type MarketConfig struct {
	DemandRatio          float64 `yaml:"demand_ratio" mapstructure:"demand_ratio"`
	BaselineRentPerWeek  float64 `yaml:"baseline_rent_per_week" mapstructure:"baseline_rent_per_week"`
	NeighborhoodRadiusKM float64 `yaml:"neighborhood_radius_km" mapstructure:"neighborhood_radius_km"`
	TopNeighborhoods     int     `yaml:"top_neighborhoods" mapstructure:"top_neighborhoods"`
	ExpansionRadiusKM    float64 `yaml:"expansion_radius_km" mapstructure:"expansion_radius_km"`
	OpportunityThreshold float64 `yaml:"opportunity_threshold" mapstructure:"opportunity_threshold"`
	MaxOpportunities     int     `yaml:"max_opportunities" mapstructure:"max_opportunities"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "geointel.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("proximity.walking_speed_kmh", 5.0)
	v.SetDefault("proximity.cycling_speed_kmh", 15.0)
	v.SetDefault("proximity.route_factor", 1.3)
	v.SetDefault("proximity.search_window_km", 3.0)
	v.SetDefault("proximity.nearest_limit", 5)
	v.SetDefault("proximity.radius_ladder_km", []float64{0.5, 1, 1.5, 2, 3, 5, 7.5, 10})
	v.SetDefault("proximity.category_weights", map[string]float64{
		"university": 0.30,
		"transport":  0.25,
		"metro":      0.25,
		"bus":        0.15,
		"grocery":    0.15,
		"restaurant": 0.10,
		"shopping":   0.10,
		"library":    0.05,
		"sports":     0.05,
		"healthcare": 0.10,
	})
	v.SetDefault("scoring.concurrency", 4)
	v.SetDefault("scoring.transit_radius_km", 2.0)
	v.SetDefault("scoring.university_radius_km", 10.0)
	v.SetDefault("scoring.amenity_radius_km", 1.5)
	v.SetDefault("scoring.leisure_radius_km", 2.0)
	v.SetDefault("scoring.competition_radius_km", 2.0)
	dw := model.DefaultScoreWeights()
	v.SetDefault("scoring.weights.accessibility", dw.Accessibility)
	v.SetDefault("scoring.weights.university_proximity", dw.UniversityProximity)
	v.SetDefault("scoring.weights.amenities", dw.Amenities)
	v.SetDefault("scoring.weights.affordability", dw.Affordability)
	v.SetDefault("scoring.weights.safety", dw.Safety)
	v.SetDefault("scoring.weights.cultural", dw.Cultural)
	v.SetDefault("scoring.weights.planning_feasibility", dw.PlanningFeasibility)
	v.SetDefault("scoring.weights.competition", dw.Competition)
	v.SetDefault("cluster.base_cell_size_deg", 0.5)
	v.SetDefault("cluster.min_cell_size_deg", 0.001)
	v.SetDefault("cluster.base_zoom", 10)
	v.SetDefault("cluster.full_detail_zoom", 15)
	v.SetDefault("cluster.singleton_zoom", 17)
	v.SetDefault("cluster.min_cluster_size", 3)
	v.SetDefault("cluster.max_singletons", 1000)
	v.SetDefault("cluster.cache_ttl_secs", 300)
	v.SetDefault("cluster.cache_max_entries", 256)
	v.SetDefault("cluster.member_detail_limit", 10)
	v.SetDefault("intel.default_radius_km", 2.0)
	v.SetDefault("intel.min_students", 5000)
	v.SetDefault("intel.max_distance_km", 5.0)
	v.SetDefault("market.demand_ratio", 0.3)
	v.SetDefault("market.baseline_rent_per_week", 150.0)
	v.SetDefault("market.neighborhood_radius_km", 10.0)
	v.SetDefault("market.top_neighborhoods", 20)
	v.SetDefault("market.expansion_radius_km", 100.0)
	v.SetDefault("market.opportunity_threshold", 60.0)
	v.SetDefault("market.max_opportunities", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Scoring.Weights.Validate(); err != nil {
		return nil, eris.Wrap(err, "config: scoring weights")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
