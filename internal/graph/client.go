package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/comptree/backend/internal/config"
)

// Client defines the minimal contract required by the repositories to interact
// with the underlying graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// String returns the value under key as a string, or "" when absent or not textual.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Float returns the value under key as a float64. Bolt integers arrive as int64.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Int returns the value under key as an int64.
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Bool returns the value under key as a bool.
func (r Record) Bool(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// Time parses the value under key, accepting native temporals and RFC 3339 strings.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		if v == "" {
			return time.Time{}
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	QueryTimeout   time.Duration
}

// OptionsFromConfig maps the environment graph config onto client options.
func OptionsFromConfig(cfg config.GraphConfig, queryTimeout time.Duration) Options {
	return Options{
		URI:            cfg.URI,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		MaxConnections: cfg.MaxConnections,
		QueryTimeout:   queryTimeout,
	}
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
