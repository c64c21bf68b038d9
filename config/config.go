package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Cors struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Geocoder     GeocoderConfig     `mapstructure:"geocoder"`
	Weather      WeatherConfig      `mapstructure:"weather"`
	Places       PlacesConfig       `mapstructure:"places"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
		Redis    RedisConfig    `mapstructure:"redis"`
	} `mapstructure:"repositories"`
}

type LLMConfig struct {
	Provider  string         `mapstructure:"provider"`
	Timeout   time.Duration  `mapstructure:"timeout"`
	MaxTokens int            `mapstructure:"maxTokens"`
	Gemini    ProviderConfig `mapstructure:"gemini"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

type ProviderConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"baseURL"`
}

type GeocoderConfig struct {
	NominatimURL string        `mapstructure:"nominatimURL"`
	PhotonURL    string        `mapstructure:"photonURL"`
	UserAgent    string        `mapstructure:"userAgent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Cache        struct {
		Backend         string        `mapstructure:"backend"` // memory, redis, postgres or none
		TTL             time.Duration `mapstructure:"ttl"`
		CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
	} `mapstructure:"cache"`
}

type WeatherConfig struct {
	OpenMeteoURL string        `mapstructure:"openMeteoURL"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type PlacesConfig struct {
	OverpassURL  string        `mapstructure:"overpassURL"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RadiusMeters int           `mapstructure:"radiusMeters"`
	Categories   []string      `mapstructure:"categories"`
}

type OrchestratorConfig struct {
	HistoryTurns  int            `mapstructure:"historyTurns"`
	PlacesLimit   int            `mapstructure:"placesLimit"`
	ParallelFetch bool           `mapstructure:"parallelFetch"`
	Keywords      KeywordsConfig `mapstructure:"keywords"`
}

type KeywordsConfig struct {
	Places            []string `mapstructure:"places"`
	Complex           []string `mapstructure:"complex"`
	Duration          []string `mapstructure:"duration"`
	LocationStopwords []string `mapstructure:"locationStopwords"`
}

type PostgresConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Host              string `mapstructure:"host"`
	Password          string `mapstructure:"password"`
	Port              string `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	DB                string `mapstructure:"db"`
	SSLMODE           string `mapstructure:"SSLMODE"`
	MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func InitConfig() (Config, error) {
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	config, err := load(v)
	if err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// LoadEmbedded returns the built-in defaults with environment overrides
// applied. Tests and the CLI use it to avoid touching the filesystem.
func LoadEmbedded() (Config, error) {
	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	var config Config

	v.SetEnvPrefix("TRAVELMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets keep their conventional names.
	secrets := map[string]string{
		"llm.gemini.apiKey":               "GOOGLE_GEMINI_API_KEY",
		"llm.openai.apiKey":               "OPENAI_API_KEY",
		"llm.anthropic.apiKey":            "ANTHROPIC_API_KEY",
		"repositories.postgres.password":  "POSTGRES_PASSWORD",
		"repositories.redis.password":     "REDIS_PASSWORD",
	}
	for key, env := range secrets {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}
