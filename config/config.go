package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port                     string        `mapstructure:"PORT"`
	Env                      string        `mapstructure:"ENV"`
	LogLevel                 string        `mapstructure:"LOG_LEVEL"`
	MongoURI                 string        `mapstructure:"MONGODB_URI"`
	MongoDatabase            string        `mapstructure:"MONGODB_DATABASE"`
	RedisURL                 string        `mapstructure:"REDIS_URL"`
	JWTSecret                string        `mapstructure:"JWT_SECRET"`
	JWTTTL                   time.Duration `mapstructure:"JWT_TTL"`
	FirebaseCredentials      string        `mapstructure:"FIREBASE_ADMIN_CREDENTIALS"`
	StorageBucket            string        `mapstructure:"FIREBASE_STORAGE_BUCKET"`
	SpeechCredentials        string        `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	SpeechLanguage           string        `mapstructure:"SPEECH_LANGUAGE"`
	OpenAIKey                string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel              string        `mapstructure:"OPENAI_MODEL"`
	NoteMaxTokens            int           `mapstructure:"NOTE_MAX_TOKENS"`
	NoteTemperature          float32       `mapstructure:"NOTE_TEMPERATURE"`
	TranscriptionTimeout     time.Duration `mapstructure:"TRANSCRIPTION_TIMEOUT"`
	TranscriptionMaxAttempts int           `mapstructure:"TRANSCRIPTION_MAX_ATTEMPTS"`
	PipelineTimeout          time.Duration `mapstructure:"PIPELINE_TIMEOUT"`
	MaxAudioMB               int64         `mapstructure:"MAX_AUDIO_MB"`
	CORSOrigins              []string      `mapstructure:"CORS_ORIGINS"`
	JobsEnabled              bool          `mapstructure:"JOBS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "MONGODB_URI", "MONGODB_DATABASE", "REDIS_URL",
	"JWT_SECRET", "JWT_TTL", "FIREBASE_ADMIN_CREDENTIALS", "FIREBASE_STORAGE_BUCKET",
	"GOOGLE_APPLICATION_CREDENTIALS", "SPEECH_LANGUAGE", "OPENAI_API_KEY", "OPENAI_MODEL",
	"NOTE_MAX_TOKENS", "NOTE_TEMPERATURE", "TRANSCRIPTION_TIMEOUT", "TRANSCRIPTION_MAX_ATTEMPTS",
	"PIPELINE_TIMEOUT", "MAX_AUDIO_MB", "CORS_ORIGINS", "JOBS_ENABLED",
}

/*
* Load .env into the process environment if present
* Bind every key so Unmarshal sees environment values
* Apply defaults
 */
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGODB_DATABASE", "attentus")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("SPEECH_LANGUAGE", "en-US")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("NOTE_MAX_TOKENS", 1500)
	v.SetDefault("NOTE_TEMPERATURE", 0.2)
	v.SetDefault("TRANSCRIPTION_TIMEOUT", "10m")
	v.SetDefault("TRANSCRIPTION_MAX_ATTEMPTS", 3)
	v.SetDefault("PIPELINE_TIMEOUT", "15m")
	v.SetDefault("MAX_AUDIO_MB", 50)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("JOBS_ENABLED", true)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// a comma separated env value arrives as one element
	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) MaxAudioBytes() int64 {
	return c.MaxAudioMB * 1024 * 1024
}

// Validate fails fast on settings the server cannot start without.
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"MONGODB_URI", c.MongoURI},
		{"JWT_SECRET", c.JWTSecret},
		{"FIREBASE_STORAGE_BUCKET", c.StorageBucket},
		{"OPENAI_API_KEY", c.OpenAIKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.TranscriptionTimeout <= 0 {
		return fmt.Errorf("TRANSCRIPTION_TIMEOUT must be positive, got %s", c.TranscriptionTimeout)
	}
	if c.TranscriptionMaxAttempts < 1 {
		return fmt.Errorf("TRANSCRIPTION_MAX_ATTEMPTS must be at least 1, got %d", c.TranscriptionMaxAttempts)
	}
	if c.PipelineTimeout < c.TranscriptionTimeout {
		return fmt.Errorf("PIPELINE_TIMEOUT (%s) must not be shorter than TRANSCRIPTION_TIMEOUT (%s)", c.PipelineTimeout, c.TranscriptionTimeout)
	}
	if c.MaxAudioMB <= 0 {
		return fmt.Errorf("MAX_AUDIO_MB must be positive, got %d", c.MaxAudioMB)
	}
	return nil
}
