package findings

// Finding is one row of the results table: a single issue on a single resource.
type Finding struct {
	Type          string   `json:"type"`
	ID            string   `json:"id"`
	ResourceName  string   `json:"resource_name"`
	ServiceName   string   `json:"service_name"`
	AVDID         *string  `json:"avdid,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Resolution    string   `json:"resolution"`
	Severity      string   `json:"severity"`
	Message       string   `json:"message"`
	CVSSStrings   *string  `json:"cvss_strings,omitempty"`
	RiskScore     *float64 `json:"risk_score,omitempty"`
	CauseMetadata string   `json:"cause_metadata"`
}

func strp(s string) *string   { return &s }
func fltp(f float64) *float64 { return &f }

// SampleFindings is a small cross-category data set for local runs and demos.
var SampleFindings = []Finding{
	{
		Type: "KUBERNETES", ID: "KSV041", ResourceName: "admin", ServiceName: "Default",
		AVDID:         strp("AVD-KSV-0041"),
		Title:         "Manage secrets",
		Description:   "Viewing secrets at the cluster-scope is akin to cluster-admin in most clusters as there are typically at least one service accounts (their token stored in a secret) bound to cluster-admin directly or a role/clusterrole that gives similar permissions.",
		Resolution:    "Manage secrets are not allowed. Remove resource 'secrets' from cluster role",
		Severity:      "CRITICAL",
		Message:       "ClusterRole 'admin' shouldn't have access to manage resource 'secrets'",
		CVSSStrings:   strp("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H"),
		RiskScore:     fltp(10.0),
		CauseMetadata: `{"root_cause": "excessive_permissions", "affected_line": "Line 39: XXXXXX"}`,
	},
	{
		Type: "KUBERNETES", ID: "KSV044", ResourceName: "argocd-application-controller", ServiceName: "Default",
		AVDID:         strp("AVD-KSV-0044"),
		Title:         "No wildcard verb and resource roles",
		Description:   "Check whether role permits wildcard verb on wildcard resource",
		Resolution:    "Create a role which does not permit wildcard verb on wildcard resource",
		Severity:      "CRITICAL",
		Message:       "Role permits wildcard verb on wildcard resource",
		CVSSStrings:   strp("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H"),
		RiskScore:     fltp(10.0),
		CauseMetadata: `{"root_cause": "wildcard_permissions", "affected_line": "Line 39: XXXXXX"}`,
	},
	{
		Type: "KUBERNETES", ID: "KSV046", ResourceName: "argocd-application-controller", ServiceName: "Default",
		AVDID:         strp("AVD-KSV-0046"),
		Title:         "Manage all resources",
		Description:   "Full control of the cluster resources, and therefore also root on all nodes where workloads can run and has access to all pods, secrets, and data.",
		Resolution:    "Remove '*' from 'rules.resources'. Provide specific list of resources to be managed by cluster role",
		Severity:      "CRITICAL",
		Message:       "ClusterRole 'argocd-application-controller' shouldn't manage all resources",
		CVSSStrings:   strp("CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:C/C:H/I:H/A:H"),
		RiskScore:     fltp(9.1),
		CauseMetadata: `{"root_cause": "excessive_permissions", "affected_line": "Line 36: XXXXXX"}`,
	},
	{
		Type: "KUBERNETES", ID: "KSV047", ResourceName: "cloudwatch-agent-role", ServiceName: "Default",
		AVDID:         strp("AVD-KSV-0047"),
		Title:         "Do not allow privilege escalation from node proxy",
		Description:   "Check whether role permits privilege escalation from node proxy",
		Resolution:    "Create a role which does not permit privilege escalation from node proxy",
		Severity:      "HIGH",
		Message:       "Role permits privilege escalation from node proxy",
		CVSSStrings:   strp("CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:N/I:N/A:N"),
		RiskScore:     fltp(0.0),
		CauseMetadata: `{"root_cause": "privilege_escalation", "affected_line": "Line 31: XXXXXX"}`,
	},
	{
		Type: "AWS", ID: "AVD-AWS-0006", ResourceName: "arn:aws:athena:us-west-2:749345143977:workgroup/primary", ServiceName: "Athena",
		AVDID:         strp("AVD-AWS-0006"),
		Title:         "Athena databases and workgroup configurations are created unencrypted at rest by default, they should be encrypted",
		Description:   "Athena databases and workspace result sets should be encrypted at rests. These databases and query sets are generally derived from data in S3 buckets and should have the same level of at rest protection.",
		Resolution:    "Enable encryption at rest for Athena databases and workgroup configurations",
		Severity:      "HIGH",
		Message:       "Database does not have encryption configured.",
		CVSSStrings:   strp("CVSS:3.1/AV:L/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"),
		RiskScore:     fltp(8.4),
		CauseMetadata: `{"root_cause": "missing_encryption", "affected_line": "Line 58: XXXXXX"}`,
	},
	{
		Type: "AWS", ID: "AVD-AWS-0007", ResourceName: "arn:aws:athena:us-west-2:749345143977:workgroup/primary", ServiceName: "Athena",
		AVDID:         strp("AVD-AWS-0007"),
		Title:         "Athena workgroups should enforce configuration to prevent client disabling encryption",
		Description:   "Athena workgroup configuration should be enforced to prevent client side changes to disable encryption settings.",
		Resolution:    "Enforce the configuration to prevent client overrides",
		Severity:      "HIGH",
		Message:       "The workgroup configuration is not enforced.",
		CVSSStrings:   strp("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"),
		RiskScore:     fltp(9.8),
		CauseMetadata: `{"root_cause": "configuration_not_enforced", "affected_line": "Line 49: XXXXXX"}`,
	},
	{
		Type: "CODE", ID: "CVE-2024-47874", ResourceName: "starlette", ServiceName: "Default",
		Title:         "starlette: Starlette Denial of service (DoS) via multipart/form-data",
		Description:   "A vulnerability in Starlette package that can lead to denial of service attacks through multipart/form-data manipulation.",
		Resolution:    "Update package starlette from 0.36.3 to 0.40.0",
		Severity:      "HIGH",
		Message:       "Vulnerable starlette package version detected",
		RiskScore:     fltp(7.5),
		CauseMetadata: `{"root_cause": "outdated_package", "affected_line": "Line 28: XXXXXX"}`,
	},
	{
		Type: "CONTAINER", ID: "CVE-2023-24538", ResourceName: "golang", ServiceName: "Default",
		Title:         "golang: html/template: backticks not treated as string delimiters",
		Description:   "A vulnerability in the html/template package where backticks are not properly treated as string delimiters.",
		Resolution:    "Update package stdlib from v1.17.13 to 1.20.3",
		Severity:      "CRITICAL",
		Message:       "Vulnerable golang package detected",
		RiskScore:     fltp(9.8),
		CauseMetadata: `{"root_cause": "outdated_package", "affected_line": "Line 19: XXXXXX"}`,
	},
}
