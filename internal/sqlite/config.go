package sqlite

import (
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	uri   *url.URL
	limit int
}

type ConfigFunc = func(c *Config)

// URI sets the location of the database. It's either a file path, a "file:" URI with optional
// go-sqlite3 parameters, or ":memory:".
func (c *Config) URI(uri string) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		panic("URI can't be blank")
	}
	if !strings.HasPrefix(uri, "file:") {
		uri = "file:" + uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		panic(fmt.Sprintf("URI is invalid: %v", err))
	}
	c.uri = u
}

// Limit sets the default number of records returned by [Journal.Range].
func (c *Config) Limit(limit int) {
	if limit < 1 {
		panic("limit can't be < 1")
	}
	c.limit = limit
}
