package server

import "time"

type StorageType string

const (
	StoragePostgres StorageType = "postgres"

	// rows live only in the process. For trials and tests.
	StorageMemory StorageType = "memory"
)

type ServerConfig struct {
	port     string
	database *DatabaseConfig
	metrics  *MetricsConfig
}

// port where geoflowd listens.
func (c *ServerConfig) Port() string {
	return c.port
}

func (c *ServerConfig) Database() *DatabaseConfig {
	return c.database
}

// Configuration of /metrics endpoint. nil when it is disabled.
func (c *ServerConfig) Metrics() *MetricsConfig {
	return c.metrics
}

// Configuration for the store of the entity graph.
//
// to get `DatabaseConfig` instance, use `TrySeal(*DatabaseConfigMarshall)` .
type DatabaseConfig struct {
	storage          StorageType
	uri              string
	schema           string
	schemaRepository string
	connectTimeout   time.Duration
}

func (d *DatabaseConfig) Storage() StorageType {
	return d.storage
}

// Connection string for postgres. Empty for memory storage.
func (d *DatabaseConfig) URI() string {
	return d.uri
}

// postgres schema where tables live. default = "public"
func (d *DatabaseConfig) Schema() string {
	return d.schema
}

// directory of versioned migrations.
//
// When empty, migrations bundled in the binary are used.
func (d *DatabaseConfig) SchemaRepository() string {
	return d.schemaRepository
}

// How long to wait for the database being ready. default = 30s
func (d *DatabaseConfig) ConnectTimeout() time.Duration {
	return d.connectTimeout
}

type MetricsConfig struct {
	path string
}

// path of the prometheus endpoint. default = "/metrics"
func (m *MetricsConfig) Path() string {
	return m.path
}
