package mysql

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/go-sql-driver/mysql"
)

// DefaultPort is used when RDS_URL carries no port.
const DefaultPort = 3306

// Environment variables read by ConfigFromEnv.
const (
	EnvURL      = "RDS_URL"
	EnvPort     = "RDS_PORT"
	EnvUsername = "RDS_USERNAME"
	EnvPassword = "RDS_PASSWORD"
	EnvDBName   = "RDS_DB_NAME"
)

// Config holds MySQL connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// ConfigFromEnv builds a Config from RDS_* variables using getenv.
// RDS_PORT and RDS_DB_NAME override the values embedded in RDS_URL.
// Returns ECONFIG when a required variable is missing or malformed.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	rawURL, err := required(getenv, EnvURL)
	if err != nil {
		return Config{}, err
	}
	host, port, database, err := ParseURL(rawURL)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{Host: host, Port: port, Database: database}
	if v := getenv(EnvPort); v != "" {
		if cfg.Port, err = strconv.Atoi(v); err != nil {
			return Config{}, contestcrawl.Errorf(contestcrawl.ECONFIG, "%s must be a number, got %q", EnvPort, v)
		}
	}
	if v := getenv(EnvDBName); v != "" {
		cfg.Database = v
	}
	if cfg.User, err = required(getenv, EnvUsername); err != nil {
		return Config{}, err
	}
	if cfg.Password, err = required(getenv, EnvPassword); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseURL splits a "jdbc:mysql://host:port/db" or "mysql://host:port/db"
// URL into its parts.
func ParseURL(rawURL string) (host string, port int, database string, err error) {
	u, err := url.Parse(strings.TrimPrefix(rawURL, "jdbc:"))
	if err != nil {
		return "", 0, "", contestcrawl.WrapErrorf(err, contestcrawl.ECONFIG, "invalid %s", EnvURL)
	}

	host = u.Hostname()
	database = strings.TrimPrefix(u.Path, "/")
	if host == "" || database == "" {
		return "", 0, "", contestcrawl.Errorf(contestcrawl.ECONFIG,
			"%s must include host and database, e.g. mysql://host:3306/dbname", EnvURL)
	}

	port = DefaultPort
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return "", 0, "", contestcrawl.Errorf(contestcrawl.ECONFIG, "invalid port in %s: %q", EnvURL, p)
		}
	}
	return host, port, database, nil
}

// DSN returns the driver connection string.
func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Timeout = 10 * time.Second
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func required(getenv func(string) string, name string) (string, error) {
	v := getenv(name)
	if v == "" {
		return "", contestcrawl.Errorf(contestcrawl.ECONFIG, "environment variable %s is required", name)
	}
	return v, nil
}
