package dashboard

import "github.com/miradorstack/posture-dashboard/internal/models"

var vulnFields = models.FieldMap{
	{Column: "Asset", Keys: []string{"asset_id", "Asset"}},
	{Column: "CVE", Keys: []string{"cve", "CVE"}},
	{Column: "CVSS", Keys: []string{"cvss", "CVSS"}},
	{Column: "Exploit", Keys: []string{"exploitable", "Exploit"}},
	{Column: "Age", Keys: []string{"age_days", "Age"}},
	{Column: "Owner", Keys: []string{"owner", "Owner"}},
	{Column: "Status", Keys: []string{"status", "Status"}},
	{Column: "Risk", Keys: []string{"risk", "Risk"}, Default: ""},
}

var thirdPartyFields = models.FieldMap{
	{Column: "Vendor", Keys: []string{"vendor", "Vendor"}},
	{Column: "Tier", Keys: []string{"tier", "Tier"}},
	{Column: "Risk", Keys: []string{"risk_score", "Risk"}},
	{Column: "Open", Keys: []string{"issues_open", "Open"}},
	{Column: "SLA", Keys: []string{"sla_breaches", "SLA"}},
	{Column: "Assessed", Keys: []string{"last_assessed", "Assessed"}},
}

var alertFields = models.FieldMap{
	{Column: "Rule", Keys: []string{"rule", "Rule"}},
	{Column: "24h", Keys: []string{"last_24h", "24h"}},
	{Column: "7d", Keys: []string{"last_7d", "7d"}},
	{Column: "Criticality", Keys: []string{"criticality", "Criticality"}},
}

var riskFields = models.FieldMap{
	{Column: "ID", Keys: []string{"risk_id", "ID"}},
	{Column: "Title", Keys: []string{"title", "Title"}},
	{Column: "Owner", Keys: []string{"owner", "Owner"}},
	{Column: "Likelihood", Keys: []string{"likelihood", "Likelihood"}},
	{Column: "Impact", Keys: []string{"impact", "Impact"}},
	{Column: "Score", Keys: []string{"score", "Score"}},
	{Column: "Status", Keys: []string{"status", "Status"}},
	{Column: "Target", Keys: []string{"target_date", "Target"}},
}

const (
	vulnLimit     = 12
	riskLimit     = 10
	patchMonths   = 6
	incidentsSpan = 30
)
