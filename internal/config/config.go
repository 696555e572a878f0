package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Keystroke/internal/domain"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`
	LogLevel   string `mapstructure:"log_level"`

	WS         WSConfig         `mapstructure:"ws"`
	Rooms      RoomsConfig      `mapstructure:"rooms"`
	Votes      VotesConfig      `mapstructure:"votes"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Journal    JournalConfig    `mapstructure:"journal"`
}

type WSConfig struct {
	ReadLimit    int64         `mapstructure:"read_limit"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
}

type RoomsConfig struct {
	MaxMembers    int           `mapstructure:"max_members"`
	MaxTextLength int           `mapstructure:"max_text_length"`
	DeletionGrace time.Duration `mapstructure:"deletion_grace"`
	LobbySample   int           `mapstructure:"lobby_sample"`
}

type VotesConfig struct {
	MinMembers    int           `mapstructure:"min_members"`
	EjectionDelay time.Duration `mapstructure:"ejection_delay"`
}

type ModerationConfig struct {
	Words          []string      `mapstructure:"words"`
	WordsFile      string        `mapstructure:"words_file"`
	Fuzzy          bool          `mapstructure:"fuzzy"`
	FuzzyThreshold float64       `mapstructure:"fuzzy_threshold"`
	ChatBan        time.Duration `mapstructure:"chat_ban"`
	MaxBan         time.Duration `mapstructure:"max_ban"`
	Moderators     []string      `mapstructure:"moderators"`
	ModCode        string        `mapstructure:"mod_code"`
	RequireModCode bool          `mapstructure:"require_mod_code"`
}

type RateLimitConfig struct {
	Events   int           `mapstructure:"events"`
	Interval time.Duration `mapstructure:"interval"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type JournalConfig struct {
	Path   string `mapstructure:"path"`
	Buffer int    `mapstructure:"buffer"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (default env "dev"). A missing
// file falls back to defaults; KEYSTROKE_* variables override either.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("KEYSTROKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Moderation.WordsFile != "" {
		words, err := readWords(cfg.Moderation.WordsFile)
		if err != nil {
			return nil, err
		}
		cfg.Moderation.Words = append(cfg.Moderation.Words, words...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Int("offensive_terms", len(cfg.Moderation.Words)).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")

	v.SetDefault("ws.read_limit", 32768)
	v.SetDefault("ws.send_buffer", 64)
	v.SetDefault("ws.write_timeout", "5s")
	v.SetDefault("ws.ping_period", "54s")

	v.SetDefault("rooms.max_members", domain.MaxRoomMembers)
	v.SetDefault("rooms.max_text_length", 500)
	v.SetDefault("rooms.deletion_grace", "10s")
	v.SetDefault("rooms.lobby_sample", 20)

	v.SetDefault("votes.min_members", 3)
	v.SetDefault("votes.ejection_delay", "3s")

	v.SetDefault("moderation.words", []string{})
	v.SetDefault("moderation.words_file", "")
	v.SetDefault("moderation.fuzzy", false)
	v.SetDefault("moderation.fuzzy_threshold", 0.8)
	v.SetDefault("moderation.chat_ban", "30s")
	v.SetDefault("moderation.max_ban", "24h")
	v.SetDefault("moderation.moderators", []string{})
	v.SetDefault("moderation.mod_code", "")
	v.SetDefault("moderation.require_mod_code", false)

	v.SetDefault("rate_limit.events", 40)
	v.SetDefault("rate_limit.interval", "1s")

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("journal.path", "")
	v.SetDefault("journal.buffer", 256)
}

// readWords loads one term per line; blank lines and # comments are skipped.
func readWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read words file: %w", err)
	}
	return words, nil
}

func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, n int64) {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	positive("port", int64(c.Port))
	positive("ws.read_limit", c.WS.ReadLimit)
	positive("ws.send_buffer", int64(c.WS.SendBuffer))
	positive("ws.write_timeout", int64(c.WS.WriteTimeout))
	positive("ws.ping_period", int64(c.WS.PingPeriod))
	positive("rooms.max_members", int64(c.Rooms.MaxMembers))
	positive("rooms.max_text_length", int64(c.Rooms.MaxTextLength))
	positive("rooms.deletion_grace", int64(c.Rooms.DeletionGrace))
	positive("votes.min_members", int64(c.Votes.MinMembers))
	positive("votes.ejection_delay", int64(c.Votes.EjectionDelay))
	positive("moderation.chat_ban", int64(c.Moderation.ChatBan))
	positive("moderation.max_ban", int64(c.Moderation.MaxBan))
	if c.Rooms.MaxMembers > domain.MaxRoomMembers {
		errs = append(errs, fmt.Errorf("rooms.max_members must not exceed %d", domain.MaxRoomMembers))
	}
	if c.Moderation.FuzzyThreshold <= 0 || c.Moderation.FuzzyThreshold > 1 {
		errs = append(errs, errors.New("moderation.fuzzy_threshold must be in (0, 1]"))
	}
	if c.Moderation.RequireModCode && c.Moderation.ModCode == "" {
		errs = append(errs, errors.New("moderation.require_mod_code needs moderation.mod_code"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
