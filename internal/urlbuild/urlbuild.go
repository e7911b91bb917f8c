// Package urlbuild assembles dashboard links for report artifacts from
// report names and on-disk report locations.
package urlbuild

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath converts Windows and UNC style separators to POSIX so
// path-derived names work regardless of where the report was produced.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// ProjectName extracts the project from a report name.
//
// Report names follow {Prefix}-{Project}-{Suffix} for regression runs,
// for example "Regression-AccountOpening-Tests-420" yields
// "AccountOpening", while other runs such as "ProdSanity-All-Tests-523"
// carry the project in the first segment.
func ProjectName(reportName string) string {
	if reportName == "" {
		return ""
	}
	parts := strings.Split(reportName, "-")
	switch {
	case len(parts) >= 3 && parts[0] == "Regression":
		return parts[1]
	case len(parts) >= 2:
		return parts[0]
	default:
		return reportName
	}
}

// ProjectJobFromPath derives project and job names from the report
// directory layout .../{Project}/{Job}/{ReportName}. Both results are
// empty when the path is too shallow to carry them.
func ProjectJobFromPath(reportDir string) (project, job string) {
	clean := path.Clean(NormalizePath(reportDir))
	parent := path.Dir(clean)
	job = path.Base(parent)
	project = path.Base(path.Dir(parent))
	if job == "." || job == "/" || project == "." || project == "/" {
		return "", ""
	}
	return project, job
}

// DashboardURL builds the full dashboard link for a report page.
// htmlPath is the path within the report, such as "html/index.html".
// When project or job are empty they are derived from the report name or
// omitted. The bare htmlPath is returned when no report name is known.
func DashboardURL(baseURL, reportName, htmlPath, project, job string) string {
	if htmlPath == "" {
		htmlPath = "html/index.html"
	}
	if reportName == "" {
		return htmlPath
	}
	if project == "" {
		project = ProjectName(reportName)
	}
	if project == "" {
		return htmlPath
	}
	// ProdSanity runs publish without a job segment.
	if strings.HasPrefix(reportName, "ProdSanity-") {
		return fmt.Sprintf("%s/Results/%s/%s/%s", baseURL, project, reportName, htmlPath)
	}
	if job != "" {
		return fmt.Sprintf("%s/Results/%s/%s/%s/%s", baseURL, project, job, reportName, htmlPath)
	}
	return fmt.Sprintf("%s/Results/%s/%s/%s", baseURL, project, reportName, htmlPath)
}
