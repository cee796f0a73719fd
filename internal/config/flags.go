package config

import (
	"flag"
)

// RegisterFlags binds every setting to a flag on fs, using the current
// values as defaults so flags only override what they are given. Secrets
// are left to the environment: flags show up in process listings.
//
//	-port int               HTTP port
//	-db-driver string       sqlite | postgres
//	-db-path string         sqlite database file
//	-database-url string    postgres DSN
//	-session-ttl duration   session lifetime, e.g. 12h
//	-secure-cookies         mark cookies Secure (HTTPS only)
//	-github-callback-url    OAuth redirect URL
//	-mail-from string       sender address
//	-log-level level        debug | info | warn | error
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "HTTP port")
	fs.StringVar(&c.DBDriver, "db-driver", c.DBDriver, "database driver: sqlite or postgres")
	fs.StringVar(&c.DBPath, "db-path", c.DBPath, "sqlite database file")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "postgres connection URL")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "session lifetime")
	fs.BoolVar(&c.SecureCookies, "secure-cookies", c.SecureCookies, "set the Secure flag on cookies")
	fs.StringVar(&c.GitHubCallbackURL, "github-callback-url", c.GitHubCallbackURL, "GitHub OAuth callback URL")
	fs.StringVar(&c.MailFrom, "mail-from", c.MailFrom, "sender address for outgoing mail")
	fs.TextVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
}
