package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config is read from the Lambda function environment.
type Config struct {
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	CallbackTimeout time.Duration `envconfig:"CALLBACK_TIMEOUT" default:"10s"`
	Region          string        `envconfig:"AWS_REGION"`
}

func Load() (*Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}
	if c.CallbackTimeout <= 0 {
		return nil, errors.Errorf("CALLBACK_TIMEOUT must be positive, got %s", c.CallbackTimeout)
	}
	return &c, nil
}

// NewLogger builds the process logger. Format is either "json" or "text".
func NewLogger(level, format string) (*logrus.Entry, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parsing log level")
	}
	logger.SetLevel(lvl)

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}

	return logrus.NewEntry(logger), nil
}
