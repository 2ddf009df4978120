package nodes

// Graph node names.
const (
	NodeIntent   = "intent"
	NodeQueryDB  = "querydb"
	NodeSummary  = "summary"
	NodeInsight  = "insight"
	NodeConclude = "conclude"
	NodeReason   = "reason"
)

// ReportabilityThreshold is the exclusive classifier score above which a
// question is answered from the findings database.
const ReportabilityThreshold = 30

const (
	ExplanationApology = "An error occurred while generating the explanation. Please try again."
	ReportApology      = "An error occurred while generating the report. Please try again."
	QueryExecutedNote  = "Query executed successfully."
	ReportTableName    = "Report Table"
)
