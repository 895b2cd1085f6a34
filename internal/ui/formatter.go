package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ptrun/internal/config"
	"ptrun/internal/discovery"
	"ptrun/internal/domain"
	"ptrun/internal/runstate"
	"ptrun/internal/storage"
)

const outputColumnWidth = 60

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	out    io.Writer
}

// NewFormatter creates a new Formatter
func NewFormatter(cfg *config.Config, out io.Writer) *Formatter {
	return &Formatter{
		config: cfg,
		out:    out,
	}
}

// PrintStdout echoes raw runner output
func (f *Formatter) PrintStdout(text string) {
	fmt.Fprint(f.out, text)
}

// PrintSummary prints the banner and results table of a finished run
func (f *Formatter) PrintSummary(snap runstate.Snapshot, duration time.Duration) {
	fmt.Fprintln(f.out)
	cyan := color.New(color.FgCyan)
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                      Test Run Results                         ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.out)

	fmt.Fprint(f.out, f.RenderResults(snap))
	fmt.Fprintln(f.out)

	counts := domain.StatusCounts(snap.Results)
	switch snap.RunStatus {
	case domain.RunStatusCompleted:
		if counts[domain.TestStatusFailed] == 0 {
			color.New(color.FgGreen).Fprintf(f.out, "✓ All %d test(s) passed in %.2fs\n", len(snap.Results), duration.Seconds())
		} else {
			color.New(color.FgRed).Fprintf(f.out, "✗ %d of %d test(s) failed in %.2fs\n", counts[domain.TestStatusFailed], len(snap.Results), duration.Seconds())
		}
	case domain.RunStatusError:
		color.New(color.FgRed).Fprintf(f.out, "✗ Run failed with exit code %s\n", exitCodeString(snap.ExitCode))
	default:
		color.New(color.FgYellow).Fprintln(f.out, "Run was cancelled")
	}
	if snap.TestURL != nil {
		cyan.Fprintf(f.out, "Dashboard: %s\n", *snap.TestURL)
	}
}

// RenderResults renders one row per test case
func (f *Formatter) RenderResults(snap runstate.Snapshot) string {
	var buf strings.Builder

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(fmt.Sprintf("Run %s (exit code %s)", snap.RunStatus, exitCodeString(snap.ExitCode)))
	t.AppendHeader(table.Row{"Function", "Test", "Impl", "Status", "Output"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Function", AutoMerge: true},
		{Name: "Test", AutoMerge: true},
		{Name: "Output", WidthMax: outputColumnWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, r := range snap.Results {
		t.AppendRow(table.Row{r.FunctionName, r.TestName, r.ImplName, string(r.Status), summarizeOutput(r)})
	}

	counts := domain.StatusCounts(snap.Results)
	t.AppendFooter(table.Row{
		"Total", len(snap.Results), "",
		fmt.Sprintf("%d passed", counts[domain.TestStatusPassed]),
		fmt.Sprintf("%d failed", counts[domain.TestStatusFailed]),
	})

	switch {
	case snap.RunStatus == domain.RunStatusError || counts[domain.TestStatusFailed] > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case snap.RunStatus == domain.RunStatusCompleted:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleDefault)
	}
	if color.NoColor {
		t.SetStyle(table.StyleLight)
	}

	t.Render()
	return buf.String()
}

// PrintHistory prints a table of recorded runs, newest first
func (f *Formatter) PrintHistory(records []storage.RunRecord) {
	if len(records) == 0 {
		color.New(color.FgYellow).Fprintln(f.out, "No recorded test runs")
		return
	}
	fmt.Fprint(f.out, f.RenderHistory(records))
}

func (f *Formatter) RenderHistory(records []storage.RunRecord) string {
	var buf strings.Builder

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"ID", "Started", "Duration", "Transport", "Status", "Tests", "Passed", "Failed"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
	})
	for _, rec := range records {
		counts := rec.Counts()
		t.AppendRow(table.Row{
			rec.ID.String()[:8],
			rec.StartedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%.2fs", rec.Duration().Seconds()),
			rec.Transport,
			string(rec.Snapshot.RunStatus),
			len(rec.Snapshot.Results),
			counts[domain.TestStatusPassed],
			counts[domain.TestStatusFailed],
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return buf.String()
}

// PrintCatalog prints the declared functions and the tests targeting them
func (f *Formatter) PrintCatalog(catalog []discovery.FunctionDecl) {
	color.New(color.FgGreen).Fprintf(f.out, "Found %d function(s):\n\n", len(catalog))

	cyan := color.New(color.FgCyan)
	for i, decl := range catalog {
		isLastFunction := i == len(catalog)-1

		location := ""
		if decl.File != "" {
			rel, err := filepath.Rel(f.config.ProjectPath, decl.File)
			if err != nil {
				rel = decl.File
			}
			location = color.New(color.Faint).Sprintf(" (%s)", filepath.ToSlash(rel))
		}
		if isLastFunction {
			cyan.Fprintf(f.out, "└── %s", decl.Name)
		} else {
			cyan.Fprintf(f.out, "├── %s", decl.Name)
		}
		fmt.Fprintln(f.out, location)

		stem := "│   "
		if isLastFunction {
			stem = "    "
		}
		if len(decl.Tests) == 0 {
			fmt.Fprintf(f.out, "%s└── %s\n", stem, color.RedString("(no tests found)"))
			continue
		}
		for j, test := range decl.Tests {
			branch := "├── "
			if j == len(decl.Tests)-1 {
				branch = "└── "
			}
			fmt.Fprintf(f.out, "%s%s%s\n", stem, branch, color.YellowString(test))
		}
	}
}

// summarizeOutput picks the most useful single line for the table
func summarizeOutput(r domain.TestCaseResult) string {
	var s string
	switch {
	case r.Output.Error != nil:
		s = *r.Output.Error
	case r.Output.Parsed != nil:
		s = *r.Output.Parsed
	case r.Output.Raw != nil:
		s = *r.Output.Raw
	case r.PartialOutput.Raw != nil:
		s = *r.PartialOutput.Raw
	}
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > 2*outputColumnWidth {
		s = string(runes[:2*outputColumnWidth]) + "…"
	}
	return s
}

func exitCodeString(code *int) string {
	if code == nil {
		return "-"
	}
	return fmt.Sprint(*code)
}
