package findings

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
)

// ReportKind names the scanner output a report was produced by.
type ReportKind string

const (
	ReportAWS        ReportKind = "aws"
	ReportCode       ReportKind = "code"
	ReportContainer  ReportKind = "container"
	ReportKubernetes ReportKind = "kubernetes"
)

// ReportKinds lists the accepted report kinds.
var ReportKinds = []ReportKind{ReportAWS, ReportCode, ReportContainer, ReportKubernetes}

// ParseReportKind matches s case-insensitively.
func ParseReportKind(s string) (ReportKind, bool) {
	for _, k := range ReportKinds {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

// noFixedVersion fills the resolution text when the scanner knows no fix.
const noFixedVersion = "NA"

// cvssSources is the preference order for vulnerability scores.
var cvssSources = []string{"nvd", "ghsa", "redhat"}

type scanReport struct {
	Results   []scanResult   `json:"Results"`
	Resources []scanResource `json:"Resources"`
}

type scanResource struct {
	Kind    string       `json:"Kind"`
	Name    string       `json:"Name"`
	Results []scanResult `json:"Results"`
}

type scanResult struct {
	Target            string             `json:"Target"`
	MisconfSummary    *misconfSummary    `json:"MisconfSummary"`
	Misconfigurations []misconfiguration `json:"Misconfigurations"`
	Vulnerabilities   []vulnerability    `json:"Vulnerabilities"`
}

type misconfSummary struct {
	Failures int `json:"Failures"`
}

type misconfiguration struct {
	ID            string          `json:"ID"`
	AVDID         string          `json:"AVDID"`
	Title         string          `json:"Title"`
	Description   string          `json:"Description"`
	Resolution    string          `json:"Resolution"`
	Severity      string          `json:"Severity"`
	Message       string          `json:"Message"`
	CauseMetadata json.RawMessage `json:"CauseMetadata"`
}

type causeMetadata struct {
	Resource string `json:"Resource"`
	Provider string `json:"Provider"`
	Service  string `json:"Service"`
}

type vulnerability struct {
	VulnerabilityID string `json:"VulnerabilityID"`
	PkgID           string `json:"PkgID"`
	PkgIdentifier   struct {
		PURL string `json:"PURL"`
	} `json:"PkgIdentifier"`
	FixedVersion string               `json:"FixedVersion"`
	Severity     string               `json:"Severity"`
	Title        string               `json:"Title"`
	Description  string               `json:"Description"`
	CVSS         map[string]cvssScore `json:"CVSS"`
}

type cvssScore struct {
	V3Score  float64 `json:"V3Score"`
	V3Vector string  `json:"V3Vector"`
}

// ParseReport dispatches to the parser for kind.
func ParseReport(kind ReportKind, r io.Reader) ([]Finding, error) {
	switch kind {
	case ReportAWS:
		return ParseAWSReport(r)
	case ReportCode:
		return ParseCodeReport(r)
	case ReportContainer:
		return ParseContainerReport(r)
	case ReportKubernetes:
		return ParseKubernetesReport(r)
	default:
		return nil, errx.BadRequest(fmt.Errorf("unknown report kind %q", kind))
	}
}

// ParseAWSReport maps cloud misconfigurations to AWS findings. A cause
// without a resource is named "<Provider>_<Service>".
func ParseAWSReport(r io.Reader) ([]Finding, error) {
	rep, err := decodeReport(r)
	if err != nil {
		return nil, err
	}

	var out []Finding
	for _, res := range rep.Results {
		for _, m := range res.Misconfigurations {
			var cause causeMetadata
			if len(m.CauseMetadata) > 0 {
				if err := json.Unmarshal(m.CauseMetadata, &cause); err != nil {
					return nil, errx.BadRequest(fmt.Errorf("decode cause metadata of %s: %w", m.ID, err))
				}
			}
			resource := cause.Resource
			if resource == "" {
				resource = cause.Provider + "_" + cause.Service
			}
			out = append(out, misconfigurationFinding("AWS", m, resource, cause.Service))
		}
	}
	return dedupe(out), nil
}

// ParseKubernetesReport maps the misconfigurations of every cluster resource
// whose results report at least one failure.
func ParseKubernetesReport(r io.Reader) ([]Finding, error) {
	rep, err := decodeReport(r)
	if err != nil {
		return nil, err
	}

	var out []Finding
	for _, resource := range rep.Resources {
		for _, res := range resource.Results {
			if res.MisconfSummary == nil || res.MisconfSummary.Failures == 0 {
				continue
			}
			for _, m := range res.Misconfigurations {
				out = append(out, misconfigurationFinding("KUBERNETES", m, resource.Name, "general"))
			}
		}
	}
	return dedupe(out), nil
}

// ParseCodeReport maps filesystem vulnerabilities to CODE findings.
func ParseCodeReport(r io.Reader) ([]Finding, error) {
	return parseVulnerabilities("CODE", r)
}

// ParseContainerReport maps image vulnerabilities to CONTAINER findings.
func ParseContainerReport(r io.Reader) ([]Finding, error) {
	return parseVulnerabilities("CONTAINER", r)
}

func parseVulnerabilities(typ string, r io.Reader) ([]Finding, error) {
	rep, err := decodeReport(r)
	if err != nil {
		return nil, err
	}

	var out []Finding
	for _, res := range rep.Results {
		for _, v := range res.Vulnerabilities {
			resource := v.PkgIdentifier.PURL
			if resource == "" {
				resource = v.PkgID
			}
			fixed := v.FixedVersion
			if fixed == "" {
				fixed = noFixedVersion
			}

			f := Finding{
				Type:          typ,
				ID:            v.VulnerabilityID,
				ResourceName:  resource,
				ServiceName:   "general",
				Title:         v.Title,
				Description:   v.Description,
				Resolution:    "Update to " + fixed,
				Severity:      v.Severity,
				CauseMetadata: res.Target,
			}
			if score, ok := preferredCVSS(v.CVSS); ok {
				f.RiskScore = fltp(score.V3Score)
				f.CVSSStrings = strp(score.V3Vector)
			}
			out = append(out, f)
		}
	}
	return dedupe(out), nil
}

func misconfigurationFinding(typ string, m misconfiguration, resource, service string) Finding {
	cause := string(m.CauseMetadata)
	if cause == "" || cause == "null" {
		cause = "{}"
	}
	f := Finding{
		Type:          typ,
		ID:            m.ID,
		ResourceName:  resource,
		ServiceName:   service,
		Title:         m.Title,
		Description:   m.Description,
		Resolution:    m.Resolution,
		Severity:      m.Severity,
		Message:       m.Message,
		CauseMetadata: cause,
	}
	if m.AVDID != "" {
		f.AVDID = strp(m.AVDID)
	}
	return f
}

// preferredCVSS returns the first score present in nvd, ghsa, redhat order.
func preferredCVSS(scores map[string]cvssScore) (cvssScore, bool) {
	for _, src := range cvssSources {
		if s, ok := scores[src]; ok {
			return s, true
		}
	}
	return cvssScore{}, false
}

// dedupe keeps the first finding per (id, resource_name).
func dedupe(in []Finding) []Finding {
	type key struct{ id, resource string }
	seen := make(map[key]struct{}, len(in))
	out := make([]Finding, 0, len(in))
	for _, f := range in {
		k := key{f.ID, f.ResourceName}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

func decodeReport(r io.Reader) (*scanReport, error) {
	var rep scanReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, errx.BadRequest(fmt.Errorf("decode scan report: %w", err))
	}
	return &rep, nil
}
