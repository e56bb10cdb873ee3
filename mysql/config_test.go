package mysql_test

import (
	"testing"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/mysql"
	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		host     string
		port     int
		database string
	}{
		{"parses JDBC URL", "jdbc:mysql://db.example.com:3307/contests", "db.example.com", 3307, "contests"},
		{"parses plain URL", "mysql://db.example.com:3306/contests", "db.example.com", 3306, "contests"},
		{"defaults port", "mysql://db.example.com/contests", "db.example.com", mysql.DefaultPort, "contests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			host, port, database, err := mysql.ParseURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
			assert.Equal(t, tt.database, database)
		})
	}

	t.Run("rejects URL without database", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := mysql.ParseURL("mysql://db.example.com:3306")
		assert.Equal(t, contestcrawl.ECONFIG, contestcrawl.ErrorCode(err))
	})

	t.Run("rejects URL without host", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := mysql.ParseURL("contests")
		assert.Equal(t, contestcrawl.ECONFIG, contestcrawl.ErrorCode(err))
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Parallel()

	complete := map[string]string{
		mysql.EnvURL:      "jdbc:mysql://db.example.com:3306/contests",
		mysql.EnvUsername: "crawler",
		mysql.EnvPassword: "secret",
	}

	t.Run("reads required variables", func(t *testing.T) {
		t.Parallel()

		cfg, err := mysql.ConfigFromEnv(envFrom(complete))
		require.NoError(t, err)
		assert.Equal(t, mysql.Config{
			Host:     "db.example.com",
			Port:     3306,
			User:     "crawler",
			Password: "secret",
			Database: "contests",
		}, cfg)
	})

	t.Run("overrides port and database", func(t *testing.T) {
		t.Parallel()

		vars := map[string]string{mysql.EnvPort: "13306", mysql.EnvDBName: "staging"}
		for k, v := range complete {
			vars[k] = v
		}

		cfg, err := mysql.ConfigFromEnv(envFrom(vars))
		require.NoError(t, err)
		assert.Equal(t, 13306, cfg.Port)
		assert.Equal(t, "staging", cfg.Database)
	})

	for _, missing := range []string{mysql.EnvURL, mysql.EnvUsername, mysql.EnvPassword} {
		t.Run("requires "+missing, func(t *testing.T) {
			t.Parallel()

			vars := map[string]string{}
			for k, v := range complete {
				if k != missing {
					vars[k] = v
				}
			}

			_, err := mysql.ConfigFromEnv(envFrom(vars))
			require.Error(t, err)
			assert.Equal(t, contestcrawl.ECONFIG, contestcrawl.ErrorCode(err))
			assert.Contains(t, contestcrawl.ErrorMessage(err), missing)
		})
	}

	t.Run("rejects non-numeric port", func(t *testing.T) {
		t.Parallel()

		vars := map[string]string{mysql.EnvPort: "abc"}
		for k, v := range complete {
			vars[k] = v
		}

		_, err := mysql.ConfigFromEnv(envFrom(vars))
		assert.Equal(t, contestcrawl.ECONFIG, contestcrawl.ErrorCode(err))
	})
}

func TestConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := mysql.Config{Host: "db.example.com", Port: 3307, User: "crawler", Password: "p@ss:word", Database: "contests"}

	parsed, err := driver.ParseDSN(cfg.DSN())
	require.NoError(t, err)

	assert.Equal(t, "crawler", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.example.com:3307", parsed.Addr)
	assert.Equal(t, "contests", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 10*time.Second, parsed.Timeout)
}
