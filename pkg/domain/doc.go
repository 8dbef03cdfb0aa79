package domain

// domain package contains the Domain Models of geoflow, the configuration core of
// a geospatial ingestion/analysis platform.
//
// `domain/ENTITY.go` files have entities (one per table) and their own invariants.
// `domain/edges.go` has the static edge table: every foreign key column of every entity,
// and what happens to the referrer when the referenced row is deleted.
//
// Sub packages:
//
// - `domain/schedule`: trigger policies parsed from Schedule/AutomaticSchedule rows.
//
// - `domain/graph`: the service mutating the entity graph in transactions.
// `domain/graph/db` exposes the store interface; `postgres` and `memory` implement it.
//
// - `domain/integrity`: plans and applies cascade / restrict / set-null on delete.
//
// - `domain/validation`: per-entity checks run before any mutation.
//
// - `domain/resolver`: certifies "this process, if run, would run under policy P against service S".
//
// # Entities
//
// - Project: root of ownership. DataProviders, Legends and processes belong to a Project.
//
// - DataProvider -> DataSeries -> DataSet: where data lives and how it is shaped.
//
// - Processes: Collector, Analysis, Interpolator, View, Alert and Storage.
// Each process has a schedule_type discriminator, and at most one of Schedule or AutomaticSchedule.
// A process is executed by a ServiceInstance of the matching ServiceType, outside of geoflow.
