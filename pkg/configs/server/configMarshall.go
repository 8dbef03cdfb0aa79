package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/server.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type ServerConfigMarshall struct {
	Port     string                  `yaml:"port"`
	Database *DatabaseConfigMarshall `yaml:"database"`
	Metrics  *MetricsConfigMarshall  `yaml:"metrics,omitempty"`
}

var _ Marshalled[*ServerConfig] = &ServerConfigMarshall{}

func (s *ServerConfigMarshall) trySeal(path string) *ServerConfig {
	port := required(s.Port, path+".port")
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || 65535 < n {
		panic(fmt.Sprintf("%s.port should be a port number: %s", path, port))
	}

	var metrics *MetricsConfig
	if s.Metrics != nil {
		metrics = s.Metrics.trySeal(path + ".metrics")
	}

	return &ServerConfig{
		port:     port,
		database: nonnil(s.Database, path+".database").trySeal(path + ".database"),
		metrics:  metrics,
	}
}

type DatabaseConfigMarshall struct {
	Type             StorageType `yaml:"type"`
	URI              string      `yaml:"uri,omitempty"`
	Schema           string      `yaml:"schema,omitempty"`
	SchemaRepository string      `yaml:"schemaRepository,omitempty"`
	ConnectTimeout   string      `yaml:"connectTimeout,omitempty"`
}

var _ Marshalled[*DatabaseConfig] = &DatabaseConfigMarshall{}

func (d *DatabaseConfigMarshall) trySeal(path string) *DatabaseConfig {
	switch t := required(d.Type, path+".type"); t {
	case StorageMemory:
		return &DatabaseConfig{storage: t}
	case StoragePostgres:
	default:
		panic(fmt.Sprintf("%s.type should be one of postgres|memory: %s", path, t))
	}

	schema := d.Schema
	if schema == "" {
		schema = "public"
	}
	timeout := 30 * time.Second
	if d.ConnectTimeout != "" {
		t, err := time.ParseDuration(d.ConnectTimeout)
		if err != nil {
			panic(fmt.Errorf("%s.connectTimeout can not be parsed: %w", path, err))
		}
		timeout = t
	}

	return &DatabaseConfig{
		storage:          StoragePostgres,
		uri:              required(d.URI, path+".uri"),
		schema:           schema,
		schemaRepository: d.SchemaRepository,
		connectTimeout:   timeout,
	}
}

type MetricsConfigMarshall struct {
	Path string `yaml:"path,omitempty"`
}

func (m *MetricsConfigMarshall) trySeal(path string) *MetricsConfig {
	p := m.Path
	if p == "" {
		p = "/metrics"
	}
	if !strings.HasPrefix(p, "/") {
		panic(fmt.Sprintf("%s.path should start with /: %s", path, p))
	}
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		panic(fmt.Sprintf("%s.path: /api/... is reserved: %s", path, p))
	}
	return &MetricsConfig{path: p}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
