package db

import (
	kpgschema "github.com/geoflow/geoflow/pkg/db/postgres/schema"
	graphdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/domain/graph/db/memory"
	schemadb "github.com/geoflow/geoflow/pkg/domain/schema/db"
)

type GeoflowDatabase interface {
	Graph() graphdb.Database
	Schema() schemadb.SchemaInterface
	Close() error
}

type onMemory struct {
	graph *memory.Store
}

// OnMemory returns a GeoflowDatabase which lives only in the process.
//
// Its schema has no version and can not be upgraded.
func OnMemory() GeoflowDatabase {
	return &onMemory{graph: memory.New()}
}

func (m *onMemory) Graph() graphdb.Database {
	return m.graph
}

func (m *onMemory) Schema() schemadb.SchemaInterface {
	return kpgschema.Null()
}

func (m *onMemory) Close() error {
	m.graph.Close()
	return nil
}
