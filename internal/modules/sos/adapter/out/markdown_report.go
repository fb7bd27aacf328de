package out

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
	"ridesafe/internal/platform/markdown"
	"ridesafe/internal/platform/slug"
)

const (
	reportBlockStart = "<!-- ridesafe:sos-report:start -->"
	reportBlockEnd   = "<!-- ridesafe:sos-report:end -->"
)

// MarkdownReportWriter writes one report note per rider and day. Rewriting
// the same day replaces only the generated block, so notes added by hand
// around it survive.
type MarkdownReportWriter struct {
	dir string
}

func NewMarkdownReportWriter(dir string) *MarkdownReportWriter {
	return &MarkdownReportWriter{dir: dir}
}

var _ sosout.ReportWriter = (*MarkdownReportWriter)(nil)

func (w *MarkdownReportWriter) Write(_ context.Context, report domain.Report) (string, error) {
	generated := report.GeneratedAt.UTC()
	path := filepath.Join(w.dir, generated.Format("2006"), generated.Format("01"), generated.Format("02"), "sos-report-"+slug.Make(report.UserID)+".md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	body := "# SOS incident report\n"
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		_, body, err = markdown.SplitFrontmatter(string(existing))
		if err != nil {
			return "", fmt.Errorf("parse existing report: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", fmt.Errorf("read existing report: %w", err)
	}

	body = markdown.ReplaceManagedBlock(body, reportBlockStart, reportBlockEnd, renderReport(report))
	meta := map[string]any{
		"type":           "sos-report",
		"user_id":        report.UserID,
		"generated_at":   generated.Format(domain.TimestampLayout),
		"alert_count":    len(report.Alerts),
		"evidence_count": len(report.Evidence),
		"sessions":       sessionIDs(report),
	}
	content, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func renderReport(report domain.Report) string {
	buf := strings.Builder{}
	buf.WriteString("## Alerts\n\n")
	alertRows := make([][]string, 0, len(report.Alerts))
	for _, alert := range report.Alerts {
		alertRows = append(alertRows, []string{
			alert.Timestamp.UTC().Format(domain.TimestampLayout),
			string(alert.Kind),
			alert.SessionID,
			alert.UserID,
			formatCoordinate(alert.Location),
		})
	}
	buf.WriteString(markdown.Table([]string{"Time", "Type", "Session", "User", "Location"}, alertRows))

	buf.WriteString("\n## Photo evidence\n\n")
	if len(report.Evidence) == 0 {
		buf.WriteString("No frames were captured.\n")
		return strings.TrimRight(buf.String(), "\n")
	}
	evidenceRows := make([][]string, 0, len(report.Evidence))
	for _, record := range report.Evidence {
		evidenceRows = append(evidenceRows, []string{
			record.Timestamp.UTC().Format(domain.TimestampLayout),
			record.SessionID,
			strconv.Itoa(len(record.ImageData)),
			formatCoordinate(record.Location),
		})
	}
	buf.WriteString(markdown.Table([]string{"Time", "Session", "Image bytes", "Location"}, evidenceRows))
	return strings.TrimRight(buf.String(), "\n")
}

func formatCoordinate(c *domain.Coordinate) string {
	if c == nil {
		return "unknown"
	}
	return strconv.FormatFloat(c.Latitude, 'f', 6, 64) + ", " + strconv.FormatFloat(c.Longitude, 'f', 6, 64)
}

func sessionIDs(report domain.Report) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, alert := range report.Alerts {
		if alert.SessionID == "" || seen[alert.SessionID] {
			continue
		}
		seen[alert.SessionID] = true
		out = append(out, alert.SessionID)
	}
	return out
}
