package internal

import (
	"fmt"
	"random-chat/errors"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/samber/lo"
)

type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=8000"`
	WSPath    string `env:"WS_PATH,default=/ws/chat/"`
	GrpcPort  int    `env:"GRPC_PORT,default=8001"`
	DebugPort int    `env:"DEBUG_PORT,default=8002"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`

	// An empty path keeps the store in memory.
	BadgerFilepath string `env:"BADGER_FILEPATH"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT,default=3s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s"`
	WriteWait            time.Duration `env:"WRITE_WAIT,default=10s"`

	MaxMessageLength  int    `env:"MAX_MESSAGE_LENGTH,default=2000"`
	MaxUsernameLength int    `env:"MAX_USERNAME_LENGTH,default=32"`
	MatchAttempts     int    `env:"MATCH_ATTEMPTS,default=3"`
	DefaultInterest   string `env:"DEFAULT_INTEREST,default=general"`
	EnableModeration  bool   `env:"ENABLE_MODERATION,default=true"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT,default=*"`
	AllowedOrigins    string `env:"ALLOWED_ORIGINS"`
}

// LoadConfig reads the process environment.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.GrpcPort <= 0 || c.DebugPort <= 0:
		return fmt.Errorf("%w: ports must be positive", errors.ErrInvalidConfig)
	case !strings.HasPrefix(c.WSPath, "/"):
		return fmt.Errorf("%w: WS_PATH must start with /, got %q", errors.ErrInvalidConfig, c.WSPath)
	case c.ConnectionBufferSize <= 0:
		return fmt.Errorf("%w: CONNECTION_BUFFER_SIZE must be positive", errors.ErrInvalidConfig)
	case c.SinkTimeout <= 0 || c.StoreTimeout <= 0:
		return fmt.Errorf("%w: SINK_TIMEOUT and STORE_TIMEOUT must be positive", errors.ErrInvalidConfig)
	case c.PongWait <= 0 || c.WriteWait <= 0 || c.MetricInterval <= 0:
		return fmt.Errorf("%w: PONG_WAIT, WRITE_WAIT and METRIC_INTERVAL must be positive", errors.ErrInvalidConfig)
	case c.MatchAttempts <= 0:
		return fmt.Errorf("%w: MATCH_ATTEMPTS must be positive", errors.ErrInvalidConfig)
	case c.MaxMessageLength <= 0 || c.MaxUsernameLength <= 0:
		return fmt.Errorf("%w: message and username limits must be positive", errors.ErrInvalidConfig)
	case strings.TrimSpace(c.DefaultInterest) == "":
		return fmt.Errorf("%w: DEFAULT_INTEREST is empty", errors.ErrInvalidConfig)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS on commas. An empty list accepts any origin.
func (c Config) Origins() []string {
	origins := lo.Map(strings.Split(c.AllowedOrigins, ","), func(origin string, _ int) string {
		return strings.TrimSpace(origin)
	})
	return lo.Compact(origins)
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"%w: CHARACTER_REPLACEMENT must be a single character, got %q",
			errors.ErrInvalidConfig, str,
		)
	}
	return r[0], nil
}
