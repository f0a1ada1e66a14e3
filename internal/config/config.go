// Package config содержит логику чтения конфигурации сервиса магазина.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

const defaultRunAddress = "localhost:8080"

// Config содержит параметры конфигурации сервиса магазина.
type Config struct {
	RunAddress            string   `env:"RUN_ADDRESS"`
	DatabaseURI           string   `env:"DATABASE_URI"`
	PaymentGatewayAddress string   `env:"PAYMENT_GATEWAY_ADDRESS"`
	AuthSecret            string   `env:"AUTH_SECRET"`
	AdminLogin            string   `env:"ADMIN_LOGIN"`
	AdminPassword         string   `env:"ADMIN_PASSWORD"`
	TiersFile             string   `env:"TIERS_FILE"`
	ReceiptBrowser        string   `env:"RECEIPT_BROWSER"`
	AllowedOrigins        []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (postgres:// or sqlite://)")
	flag.StringVar(&cfg.PaymentGatewayAddress, "r", "", "payment gateway address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth cookies and admin tokens")
	flag.StringVar(&cfg.AdminLogin, "admin-login", "admin", "admin panel login")
	flag.StringVar(&cfg.AdminPassword, "admin-password", "", "admin panel password")
	flag.StringVar(&cfg.TiersFile, "t", "", "YAML file with customer tier thresholds")
	flag.StringVar(&cfg.ReceiptBrowser, "b", "", "path to Chrome binary for PDF receipts")

	flag.Parse()

	overrideString(&cfg.RunAddress, envCfg.RunAddress)
	overrideString(&cfg.DatabaseURI, envCfg.DatabaseURI)
	overrideString(&cfg.PaymentGatewayAddress, envCfg.PaymentGatewayAddress)
	overrideString(&cfg.AuthSecret, envCfg.AuthSecret)
	overrideString(&cfg.AdminLogin, envCfg.AdminLogin)
	overrideString(&cfg.AdminPassword, envCfg.AdminPassword)
	overrideString(&cfg.TiersFile, envCfg.TiersFile)
	overrideString(&cfg.ReceiptBrowser, envCfg.ReceiptBrowser)
	cfg.AllowedOrigins = envCfg.AllowedOrigins

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	return cfg, nil
}

func overrideString(dst *string, envValue string) {
	if envValue != "" {
		*dst = envValue
	}
}
