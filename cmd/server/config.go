package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/krypto"
)

// config is the configuration for the server command. The token secrets
// are required, everything else falls back to a sane default.
type config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8888"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DBFile string `env:"DB_FILE" envDefault:"gatehouse.db"`

	// BaseURL is the public URL of the service, used to build the links
	// in activation and password reset emails.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8888"`

	AccessTokenSecret  krypto.Secret `env:"ACCESS_TOKEN_SECRET,required,notEmpty"`
	RefreshTokenSecret krypto.Secret `env:"REFRESH_TOKEN_SECRET,required,notEmpty"`

	SecureCookie    bool          `env:"SECURE_COOKIE" envDefault:"true"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"5"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`

	EmailFrom email.Address `env:"EMAIL_FROM" envDefault:"no-reply@localhost"`

	// EmailSender selects the delivery backend: "log" or "postmark".
	EmailSender           string        `env:"EMAIL_SENDER" envDefault:"log"`
	PostmarkServerToken   krypto.Secret `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkMessageStream string        `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
}

func configFromEnv() (config, error) {
	var c config
	if err := env.Parse(&c); err != nil {
		return c, err
	}

	switch c.EmailSender {
	case "log":
	case "postmark":
		if c.PostmarkServerToken.IsZero() {
			return c, fmt.Errorf("POSTMARK_SERVER_TOKEN is required when EMAIL_SENDER=postmark")
		}
	default:
		return c, fmt.Errorf("unknown EMAIL_SENDER %q", c.EmailSender)
	}

	return c, nil
}
