package domain

// View publishes a series as a map layer.
//
// Static views are MANUAL and have neither Schedule nor AutomaticSchedule.
type View struct {
	Identified
	ProjectId    int64        `json:"project_id" ref:"project" validate:"required"`
	Name         string       `json:"name" validate:"required,max=255"`
	Description  string       `json:"description"`
	DataSeriesId int64        `json:"data_series_id" ref:"data_series" validate:"required"`
	Private      bool         `json:"private"`
	StyleLegend  *StyleLegend `json:"style_legend"`
	Charts       []Chart      `json:"charts" validate:"dive"`
	ProcessLink
}

func (*View) Kind() Kind { return KindView }

func (v *View) EntityName() string { return v.Name }

type StyleLegend struct {
	Type   string       `json:"type" validate:"style_legend_type"`
	Column string       `json:"column"`
	Colors []StyleColor `json:"colors" validate:"dive"`
}

type StyleColor struct {
	Title     string `json:"title"`
	Color     string `json:"color" validate:"required,hexcolor"`
	Value     string `json:"value"`
	IsDefault bool   `json:"is_default"`
}

type Chart struct {
	Type       string   `json:"type" validate:"required"`
	Attributes []string `json:"attributes"`
}

// Alert notifies recipients when a series crosses legend levels.
type Alert struct {
	Identified
	ProjectId       int64               `json:"project_id" ref:"project" validate:"required"`
	Name            string              `json:"name" validate:"required,max=255"`
	Description     string              `json:"description"`
	DataSeriesId    int64               `json:"data_series_id" ref:"data_series" validate:"required"`
	LegendId        int64               `json:"legend_id" ref:"legend" validate:"required"`
	LegendAttribute string              `json:"legend_attribute" validate:"required"`
	ViewId          *int64              `json:"view_id" ref:"view"`
	ReportMetadata  map[string]string   `json:"report_metadata"`
	AdditionalData  []AlertData         `json:"additional_data"`
	Notifications   []AlertNotification `json:"notifications" validate:"dive"`
	ProcessLink
}

func (*Alert) Kind() Kind { return KindAlert }

func (a *Alert) EntityName() string { return a.Name }

// AlertData is an additional series shown in reports.
type AlertData struct {
	DataSeriesId int64    `json:"data_series_id"`
	Attributes   []string `json:"attributes"`
}

type AlertNotification struct {
	IncludeReport       string   `json:"include_report"`
	NotifyOnChange      bool     `json:"notify_on_change"`
	SimplifiedReport    bool     `json:"simplified_report"`
	NotifyOnLegendLevel *int     `json:"notify_on_legend_level"`
	Recipients          []string `json:"recipients" validate:"required,min=1,dive,email"`
}

// AlertAttachment is a map image attached to alert reports.
type AlertAttachment struct {
	Identified
	AlertId int64   `json:"alert_id" ref:"alert" validate:"required"`
	XMin    float64 `json:"x_min"`
	XMax    float64 `json:"x_max" validate:"gtfield=XMin"`
	YMin    float64 `json:"y_min"`
	YMax    float64 `json:"y_max" validate:"gtfield=YMin"`
	Srid    int     `json:"srid" validate:"gt=0"`
}

func (*AlertAttachment) Kind() Kind { return KindAlertAttachment }

// AlertAttachedView is a view layer drawn on an attachment.
type AlertAttachedView struct {
	Identified
	AlertAttachmentId int64 `json:"alert_attachment_id" ref:"alert_attachment" validate:"required"`
	ViewId            int64 `json:"view_id" ref:"view" validate:"required"`
	LayerOrder        int   `json:"layer_order" validate:"gte=0"`
}

func (*AlertAttachedView) Kind() Kind { return KindAlertAttachedView }

// Storage is a retention policy of a series.
type Storage struct {
	Identified
	ProjectId    int64  `json:"project_id" ref:"project" validate:"required"`
	Name         string `json:"name" validate:"required,max=255"`
	Description  string `json:"description"`
	DataSeriesId int64  `json:"data_series_id" ref:"data_series" validate:"required"`
	// backup destination
	DataProviderId *int64 `json:"data_provider_id" ref:"data_provider"`
	KeepData       int    `json:"keep_data" validate:"gte=0"`
	KeepDataUnit   string `json:"keep_data_unit" validate:"retention_unit"`
	EraseAll       bool   `json:"erase_all"`
	Backup         bool   `json:"backup"`
	Zip            bool   `json:"zip"`
	ProcessLink
}

func (*Storage) Kind() Kind { return KindStorage }

func (s *Storage) EntityName() string { return s.Name }
