package db

import (
	"net/url"
	"os"
	"regexp"
	"strings"
)

var dsnKeyPattern = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizeDSN accepts either a URL style DSN (postgres://...) or a lib/pq
// key=value list. Quotes and stray whitespace are stripped; key=value form
// additionally gets sslmode=disable appended when no sslmode is given, so a
// bare local DSN works out of the box.
func NormalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'")
	if s == "" || isURLForm(s) {
		return s
	}
	if !dsnKeyPattern.MatchString(s) {
		// not recognizable as key=value pairs; let the driver report it
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

func isURLForm(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// ToURLDSN converts a key=value DSN into URL form, which golang-migrate
// requires. URL-form input passes through untouched; a key=value list
// missing host, user or dbname is returned unchanged for the caller to
// fail on naturally.
func ToURLDSN(dsn string) string {
	if dsn == "" || isURLForm(dsn) {
		return dsn
	}
	kv := map[string]string{}
	for _, part := range strings.Fields(dsn) {
		if k, v, ok := strings.Cut(part, "="); ok {
			kv[strings.ToLower(k)] = v
		}
	}
	if kv["host"] == "" || kv["user"] == "" || kv["dbname"] == "" {
		return dsn
	}
	u := &url.URL{Scheme: "postgres", Host: kv["host"], Path: "/" + kv["dbname"]}
	if port := kv["port"]; port != "" {
		u.Host += ":" + port
	}
	if pass := kv["password"]; pass != "" {
		u.User = url.UserPassword(kv["user"], pass)
	} else {
		u.User = url.User(kv["user"])
	}
	if sslmode := kv["sslmode"]; sslmode != "" {
		q := url.Values{}
		q.Set("sslmode", sslmode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// GetNormalizedDSN reads DATABASE_DSN from the environment and normalizes it.
func GetNormalizedDSN() string { return NormalizeDSN(os.Getenv("DATABASE_DSN")) }
