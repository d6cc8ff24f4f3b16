package models

// DatasetDescriptor names one logical dataset and where each source keeps it.
type DatasetDescriptor struct {
	Name        string
	RemoteQuery string
	FallbackKey string
}

// Dataset names.
const (
	DatasetKPIs          = "kpis"
	DatasetIncidents     = "incidents"
	DatasetVulnsTop      = "vulns-top"
	DatasetCompliance    = "compliance"
	DatasetPatchCoverage = "patch-coverage"
	DatasetThirdParty    = "third-party"
	DatasetAlertsTop     = "alerts-top"
	DatasetRiskRegister  = "risk-register"
	DatasetControls      = "controls"
)

// Datasets is the static catalogue acquired on every render cycle.
var Datasets = []DatasetDescriptor{
	{Name: DatasetKPIs, RemoteQuery: "/kpis", FallbackKey: "kpis"},
	{Name: DatasetIncidents, RemoteQuery: "/incidents", FallbackKey: "incidents"},
	{Name: DatasetVulnsTop, RemoteQuery: "/vulns/top?limit=12", FallbackKey: "vulns_top"},
	{Name: DatasetCompliance, RemoteQuery: "/compliance", FallbackKey: "compliance"},
	{Name: DatasetPatchCoverage, RemoteQuery: "/patch/coverage", FallbackKey: "patch_coverage"},
	{Name: DatasetThirdParty, RemoteQuery: "/thirdparty", FallbackKey: "thirdparty"},
	{Name: DatasetAlertsTop, RemoteQuery: "/alerts/top", FallbackKey: "alerts_top"},
	{Name: DatasetRiskRegister, RemoteQuery: "/risk/register", FallbackKey: "risk_register"},
	{Name: DatasetControls, RemoteQuery: "/controls", FallbackKey: "controls"},
}

// LookupDataset returns the descriptor registered under name.
func LookupDataset(name string) (DatasetDescriptor, bool) {
	for _, d := range Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return DatasetDescriptor{}, false
}

// Sample is one point of a time series.
type Sample struct {
	Label     string
	Value     float64
	Secondary float64
}

// Values returns the primary values of a series in order.
func Values(points []Sample) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
