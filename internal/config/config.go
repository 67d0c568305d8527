// Package config loads the bridge's ini-style configuration: a bundled
// default overlaid by an optional fpesa.cfg in the working directory.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

//go:embed default.cfg
var defaultCfg []byte

// RabbitMQ holds the [rabbitmq] section.
type RabbitMQ struct {
	Host        string `ini:"host"`
	Port        string `ini:"port"`
	VirtualHost string `ini:"virtual_host"`
	User        string `ini:"user"`
	Password    string `ini:"password"`
}

// Postgres holds the [postgres] section.
type Postgres struct {
	Host     string `ini:"host"`
	Port     string `ini:"port"`
	User     string `ini:"user"`
	Password string `ini:"password"`
	Database string `ini:"database"`
	SSLMode  string `ini:"sslmode"`
}

// Config is the fully resolved bridge configuration.
type Config struct {
	RabbitMQ RabbitMQ
	Postgres Postgres
}

// Load reads the embedded default configuration, then overlays fpesa.cfg
// from the working directory if it exists. A missing overlay file is not an
// error; a malformed one is.
func Load() (*Config, error) {
	file, err := ini.Load(defaultCfg)
	if err != nil {
		return nil, fmt.Errorf("parse default config: %w", err)
	}

	const overlay = "fpesa.cfg"
	if _, statErr := os.Stat(overlay); statErr == nil {
		if err := file.Append(overlay); err != nil {
			return nil, fmt.Errorf("load %s: %w", overlay, err)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, fmt.Errorf("stat %s: %w", overlay, statErr)
	}

	cfg := &Config{}
	if err := file.Section("rabbitmq").MapTo(&cfg.RabbitMQ); err != nil {
		return nil, fmt.Errorf("decode [rabbitmq]: %w", err)
	}
	if err := file.Section("postgres").MapTo(&cfg.Postgres); err != nil {
		return nil, fmt.Errorf("decode [postgres]: %w", err)
	}
	return cfg, nil
}

// AMQPURL assembles the amqp091-go dial URL for this configuration.
func (c *Config) AMQPURL() string {
	vhost := c.RabbitMQ.VirtualHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port, vhost)
}

// PostgresDSN assembles the lib/pq connection string for this configuration.
func (c *Config) PostgresDSN() string {
	sslmode := c.Postgres.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password, c.Postgres.Database, sslmode)
}
