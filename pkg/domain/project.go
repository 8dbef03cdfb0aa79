package domain

// Project owns data providers, legends and processes.
type Project struct {
	Identified
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Version     int    `json:"version" validate:"gte=0"`
	Protected   bool   `json:"protected"`
	Active      bool   `json:"active"`
	// owner. users are managed outside of geoflow.
	UserId *int64 `json:"user_id"`
}

func (*Project) Kind() Kind { return KindProject }

func (p *Project) EntityName() string { return p.Name }

// ServiceInstance is a registered external worker.
type ServiceInstance struct {
	Identified
	Name            string      `json:"name" validate:"required,max=255"`
	Description     string      `json:"description"`
	Host            string      `json:"host" validate:"required,hostname_rfc1123|ip"`
	Port            int         `json:"port" validate:"min=1,max=65535"`
	ServiceType     ServiceType `json:"service_type" validate:"service_type"`
	NumberOfThreads int         `json:"number_of_threads" validate:"gte=0"`
	RuntimePath     string      `json:"runtime_path"`
}

func (*ServiceInstance) Kind() Kind { return KindServiceInstance }

func (s *ServiceInstance) EntityName() string { return s.Name }

// DataProvider is a location where data series live.
type DataProvider struct {
	Identified
	ProjectId   int64              `json:"project_id" ref:"project" validate:"required"`
	Name        string             `json:"name" validate:"required,max=255"`
	Description string             `json:"description"`
	Uri         string             `json:"uri" validate:"required,uri"`
	Type        DataProviderType   `json:"data_provider_type" validate:"data_provider_type"`
	Intent      DataProviderIntent `json:"data_provider_intent" validate:"data_provider_intent"`
	Active      bool               `json:"active"`
	// seconds. 0 means no timeout.
	Timeout int               `json:"timeout" validate:"gte=0"`
	Options map[string]string `json:"options"`
}

func (*DataProvider) Kind() Kind { return KindDataProvider }

func (d *DataProvider) EntityName() string { return d.Name }

// Legend is a set of levels used by alerts.
type Legend struct {
	Identified
	ProjectId   int64         `json:"project_id" ref:"project" validate:"required"`
	Name        string        `json:"name" validate:"required,max=255"`
	Description string        `json:"description"`
	Levels      []LegendLevel `json:"levels" validate:"required,min=1,dive"`
}

func (*Legend) Kind() Kind { return KindLegend }

func (l *Legend) EntityName() string { return l.Name }

// LegendLevel is a threshold of a legend.
//
// The first level is the default level and has no value.
type LegendLevel struct {
	Name  string   `json:"name" validate:"required"`
	Value *float64 `json:"value"`
}
