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
			Port    string `mapstructure:"port"`
			Enabled bool   `mapstructure:"enabled"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Enabled           bool   `mapstructure:"enabled"`
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	IBGE struct {
		LocalidadesURL       string        `mapstructure:"localidadesURL"`
		AgregadosURL         string        `mapstructure:"agregadosURL"`
		RequestTimeout       time.Duration `mapstructure:"requestTimeout"`
		RequestsPerSecond    float64       `mapstructure:"requestsPerSecond"`
		MunicipalityCacheTTL time.Duration `mapstructure:"municipalityCacheTTL"`
	} `mapstructure:"ibge"`
	Gemini struct {
		APIKey         string `mapstructure:"apiKey"`
		Model          string `mapstructure:"model"`
		DevPromptModel string `mapstructure:"devPromptModel"`
	} `mapstructure:"gemini"`
	Session struct {
		TTL       time.Duration `mapstructure:"ttl"`
		JWTSecret string        `mapstructure:"jwtSecret"`
	} `mapstructure:"session"`
	Reports struct {
		KeepPerMunicipality int `mapstructure:"keepPerMunicipality"`
	} `mapstructure:"reports"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets come from the environment, never from the committed file.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gemini.apiKey", "GOOGLE_GEMINI_API_KEY", "API_KEY")
	_ = v.BindEnv("session.jwtSecret", "SESSION_JWT_SECRET")
	_ = v.BindEnv("repositories.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("repositories.postgres.enabled", "POSTGRES_ENABLED")
	_ = v.BindEnv("server.HTTPPort", "HTTP_PORT")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Session.JWTSecret == "" {
		return Config{}, fmt.Errorf("session.jwtSecret must be set (SESSION_JWT_SECRET)")
	}
	return config, nil
}
