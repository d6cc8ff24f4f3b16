package models

// Region is one named area of the dashboard page fed by a single dataset.
type Region struct {
	Name    string
	Title   string
	Dataset string
}

// Metric field names.
const (
	MetricRisk     = "risk"
	MetricFindings = "findings"
	MetricCritical = "critical"
	MetricSLA      = "sla"
	MetricMTTD     = "mttd"
	MetricMTTR     = "mttr"
	MetricUpdated  = "updated"
)

// Chart surface names.
const (
	ChartIncidents  = "incidents"
	ChartCompliance = "compliance"
	ChartPatch      = "patch"
)

// Table names.
const (
	TableVulns      = "vulns"
	TableThirdParty = "thirdparty"
	TableAlerts     = "alerts"
	TableRisks      = "risks"
	TableControls   = "controls"
)

// MetricRegions lists the KPI fields in display order.
var MetricRegions = []Region{
	{Name: MetricRisk, Title: "Overall risk", Dataset: DatasetKPIs},
	{Name: MetricFindings, Title: "Open findings", Dataset: DatasetKPIs},
	{Name: MetricCritical, Title: "Critical open", Dataset: DatasetKPIs},
	{Name: MetricSLA, Title: "Patch SLA", Dataset: DatasetKPIs},
	{Name: MetricMTTD, Title: "MTTD", Dataset: DatasetKPIs},
	{Name: MetricMTTR, Title: "MTTR", Dataset: DatasetKPIs},
	{Name: MetricUpdated, Title: "Last updated", Dataset: DatasetKPIs},
}

// ChartRegions lists the chart surfaces in display order.
var ChartRegions = []Region{
	{Name: ChartIncidents, Title: "Incident trend", Dataset: DatasetIncidents},
	{Name: ChartCompliance, Title: "Compliance by framework", Dataset: DatasetCompliance},
	{Name: ChartPatch, Title: "Patch coverage (6 months)", Dataset: DatasetPatchCoverage},
}

// TableRegions lists the sortable tables in display order.
var TableRegions = []Region{
	{Name: TableVulns, Title: "Top vulnerabilities", Dataset: DatasetVulnsTop},
	{Name: TableThirdParty, Title: "Third-party risk", Dataset: DatasetThirdParty},
	{Name: TableAlerts, Title: "Top alert rules", Dataset: DatasetAlertsTop},
	{Name: TableRisks, Title: "Risk register", Dataset: DatasetRiskRegister},
	{Name: TableControls, Title: "Controls coverage", Dataset: DatasetControls},
}
