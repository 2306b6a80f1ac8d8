package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	WebSocketOrigin string
	InternalToken   string

	Workers         int
	QueueVisibility time.Duration
	CloseInterval   time.Duration
	ShutdownTimeout time.Duration
	MaxSLTPDistance decimal.Decimal

	// Tradable instruments; empty means every instrument the market data
	// simulator knows.
	Instruments []string

	// Single webhook account used when DB_DSN is unset.
	StaticKeyID      string
	StaticSecretHash string
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		c.JWTIssuer = "sigflow"
	}
	var err error
	if c.JWTTTL, err = durationEnv("JWT_TTL", 15*time.Minute); err != nil {
		return c, err
	}
	c.DBDSN = os.Getenv("DB_DSN")
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		c.WebSocketOrigin = "*"
	}
	c.InternalToken = os.Getenv("INTERNAL_API_TOKEN")
	workers := os.Getenv("WORKERS")
	if workers == "" {
		c.Workers = 4
	} else {
		n, err := strconv.Atoi(workers)
		if err != nil || n <= 0 {
			return c, errors.New("invalid WORKERS")
		}
		c.Workers = n
	}
	if c.QueueVisibility, err = durationEnv("QUEUE_VISIBILITY_TIMEOUT", 30*time.Second); err != nil {
		return c, err
	}
	if c.CloseInterval, err = durationEnv("CLOSE_INTERVAL", 2*time.Second); err != nil {
		return c, err
	}
	if c.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return c, err
	}
	maxDist := os.Getenv("MAX_SLTP_DISTANCE")
	if maxDist == "" {
		maxDist = "0.05"
	}
	if c.MaxSLTPDistance, err = decimal.NewFromString(maxDist); err != nil {
		return c, errors.New("invalid MAX_SLTP_DISTANCE")
	}
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		for _, inst := range strings.Split(v, ",") {
			inst = strings.ToUpper(strings.TrimSpace(inst))
			if inst != "" {
				c.Instruments = append(c.Instruments, inst)
			}
		}
	}
	c.StaticKeyID = os.Getenv("WEBHOOK_KEY_ID")
	c.StaticSecretHash = os.Getenv("WEBHOOK_SECRET_HASH")
	if c.DBDSN == "" && (c.StaticKeyID == "" || c.StaticSecretHash == "") {
		missing = append(missing, "DB_DSN or WEBHOOK_KEY_ID+WEBHOOK_SECRET_HASH")
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
