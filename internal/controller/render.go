package controller

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

func summaryLine(report m.RunReport) string {
	return fmt.Sprintf("Scanned %d files and found %d matches in %.3f seconds",
		report.FilesScanned, report.TotalMatches, report.Elapsed.Seconds())
}

func cancelledLine(report m.RunReport) string {
	return fmt.Sprintf("Scan cancelled after %d of %d files", report.FilesScanned, report.TotalFiles)
}

func joinRules(rules []m.RuleID) string {
	names := make([]string, len(rules))
	for i, rule := range rules {
		names[i] = string(rule)
	}

	return strings.Join(names, ", ")
}

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	return table
}

func renderFindingsTable(report m.RunReport) string {
	var tableBuffer bytes.Buffer

	table := newTable(&tableBuffer, []string{"Path", "Rules"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	matched := report.MatchedPaths()
	for _, path := range matched {
		table.Append([]string{string(path), joinRules(report.PerFileMatches[path])})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Matched Files %d", len(matched)),
		fmt.Sprintf("%d", report.TotalMatches),
	})

	table.Render()

	return tableBuffer.String()
}

func renderFailuresTable(report m.RunReport) string {
	var tableBuffer bytes.Buffer

	table := newTable(&tableBuffer, []string{"Failure", "Files"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, kind := range m.FailureKinds {
		if count := report.FailuresByKind[kind.String()]; count > 0 {
			table.Append([]string{kind.String(), fmt.Sprintf("%d", count)})
		}
	}

	table.Render()

	return tableBuffer.String()
}

func renderFileTable(files []m.File) string {
	var tableBuffer bytes.Buffer

	table := newTable(&tableBuffer, []string{"Path", "Size"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	var totalSize int64

	for _, file := range files {
		table.Append([]string{string(file.Path), formatSize(file.Size)})
		totalSize += file.Size
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(files)),
		formatSize(totalSize),
	})

	table.Render()

	return tableBuffer.String()
}

// renderReport lays out a finished run: findings, failures and the summary line.
func renderReport(report m.RunReport) string {
	var b strings.Builder

	if report.RunID != "" {
		fmt.Fprintf(&b, "Run %s", report.RunID)

		if report.Root != "" {
			fmt.Fprintf(&b, " (%s)", report.Root)
		}

		b.WriteString("\n")
	}

	if report.TotalMatches > 0 {
		b.WriteString("\n")
		b.WriteString(renderFindingsTable(report))
	} else {
		b.WriteString("\nNo matches found\n")
	}

	if report.FailedFiles > 0 {
		fmt.Fprintf(&b, "\n%d file(s) could not be scanned:\n", report.FailedFiles)
		b.WriteString(renderFailuresTable(report))
	}

	b.WriteString("\n")

	if report.Cancelled {
		b.WriteString(cancelledLine(report))
		b.WriteString("\n")
	}

	b.WriteString(summaryLine(report))
	b.WriteString("\n")

	return b.String()
}

func formatSize(size int64) string {
	const unit = 1024

	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
