package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// ServiceID is the identity this service acts under when spending token
	// allowances and consuming ledger permits.
	ServiceID string
	// FeeAccount holds accrued protocol fees until withdrawal; Treasury is
	// where withdrawals land.
	FeeAccount string
	Treasury   string

	// AdminID is the only actor allowed on the admin surface; AdminJWTSecret
	// signs/verifies the bearer tokens that carry it.
	AdminID        string
	AdminJWTSecret string

	// ProtocolFeeBps seeds the fee setting on first boot.
	ProtocolFeeBps uint64
	// ImpairGraceSecs is how long past due a loan must be before the
	// creditor can impair it.
	ImpairGraceSecs int64
	// AcceptanceFee is a fixed fee (smallest token unit) attached to accept
	// calls; empty or "0" disables it.
	AcceptanceFee string

	// FeeSweepCron schedules automatic fee withdrawal; empty disables.
	FeeSweepCron string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt64(k string, d int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "frendlend"),
		MySQLUser: getenv("MYSQL_USER", "frendlend"),
		MySQLPass: getenv("MYSQL_PASS", "frendlend"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		IdempTTLSecs: 300,

		ServiceID:  getenv("SERVICE_ID", "frendlend-controller"),
		FeeAccount: getenv("FEE_ACCOUNT", "frendlend-fees"),
		Treasury:   getenv("TREASURY_ACCOUNT", "frendlend-treasury"),

		AdminID:        getenv("ADMIN_ID", ""),
		AdminJWTSecret: getenv("ADMIN_JWT_SECRET", ""),

		ProtocolFeeBps:  uint64(getenvInt64("PROTOCOL_FEE_BPS", 0)),
		ImpairGraceSecs: getenvInt64("IMPAIR_GRACE_SECONDS", 7*24*3600),
		AcceptanceFee:   getenv("ACCEPTANCE_FEE", "0"),

		FeeSweepCron: getenv("FEE_SWEEP_CRON", ""),
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.AdminID == "" || c.AdminJWTSecret == "" {
		return errors.New("missing admin config (ADMIN_ID/ADMIN_JWT_SECRET)")
	}
	if c.ProtocolFeeBps > 10_000 {
		return fmt.Errorf("PROTOCOL_FEE_BPS %d exceeds 10000", c.ProtocolFeeBps)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
