package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/rps-client/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
// A non-empty appName is passed as application_name.
func BuildConnString(cfg config.DBConfig, appName string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	if appName != "" {
		q.Set("application_name", appName)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
