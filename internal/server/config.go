package server

import (
	"fmt"
	"time"
)

// Config carries every startup parameter. Flags override the
// environment; all timing values are plain milliseconds on the wire.
type Config struct {
	Debug            bool   `env:"DEBUG" envDefault:"false"`
	DryRun           bool   `env:"DRY_RUN" envDefault:"false"`
	ListenAddr       string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8766"`
	TxDelayMs        int    `env:"TX_DELAY_MS" envDefault:"0"`
	StreamIntervalMs int    `env:"STREAM_INTERVAL_MS" envDefault:"20"`
	IdleTimeoutMs    int    `env:"STREAM_IDLE_TIMEOUT_MS" envDefault:"3000"`
	Repeat           int    `env:"REPEAT" envDefault:"0"`
	MaxEntries       int    `env:"MAX_ENTRIES" envDefault:"15"`
	USBTimeoutMs     int    `env:"USB_TIMEOUT_MS" envDefault:"1000"`
}

// ConfigError is fatal at startup; the transmitter loop never starts on
// an invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (c Config) Validate() error {
	if c.TxDelayMs < 0 {
		return &ConfigError{Field: "tx-delay-ms", Reason: "must not be negative"}
	}
	if c.StreamIntervalMs < 0 {
		return &ConfigError{Field: "stream-interval-ms", Reason: "must not be negative"}
	}
	if c.IdleTimeoutMs < 0 {
		return &ConfigError{Field: "stream-idle-timeout-ms", Reason: "must not be negative"}
	}
	if c.Repeat < 0 {
		return &ConfigError{Field: "repeat", Reason: "must not be negative"}
	}
	if c.MaxEntries < 1 {
		return &ConfigError{Field: "max-entries", Reason: "must be positive"}
	}
	if c.USBTimeoutMs <= 0 {
		return &ConfigError{Field: "usb-timeout-ms", Reason: "must be positive"}
	}
	if c.ListenAddr == "" {
		return &ConfigError{Field: "listen", Reason: "must not be empty"}
	}
	return nil
}

func (c Config) TxDelay() time.Duration {
	return time.Duration(c.TxDelayMs) * time.Millisecond
}

func (c Config) StreamInterval() time.Duration {
	return time.Duration(c.StreamIntervalMs) * time.Millisecond
}

func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMs) * time.Millisecond
}

func (c Config) USBTimeout() time.Duration {
	return time.Duration(c.USBTimeoutMs) * time.Millisecond
}
