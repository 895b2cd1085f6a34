package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"ptrun/internal/domain"
	"ptrun/internal/storage"
)

// ResultViewer browses the test cases of a recorded run in an interactive TUI
type ResultViewer struct{}

// NewResultViewer creates a new ResultViewer
func NewResultViewer() *ResultViewer {
	return &ResultViewer{}
}

// View displays the run. F toggles between all tests and failed tests only.
func (rv *ResultViewer) View(record *storage.RunRecord) error {
	results := record.Snapshot.Results
	if len(results) == 0 {
		color.Yellow("Run %s has no test cases", record.ID)
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	failedOnly := false
	var visible []int

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index < 0 || index >= len(visible) {
			statsView.SetText("")
			detailsView.SetText("[gray]No test cases to show[white]")
			return
		}
		r := results[visible[index]]
		statsView.SetText(formatResultStats(r))
		detailsView.SetText(formatResultDetails(r)).ScrollToBeginning()
	}

	rebuild := func() {
		visible = visible[:0]
		list.Clear()
		for i, r := range results {
			if failedOnly && r.Status != domain.TestStatusFailed {
				continue
			}
			visible = append(visible, i)
			list.AddItem(listItemText(len(visible), r), "", 0, nil)
		}

		counts := domain.StatusCounts(results)
		filter := "all"
		if failedOnly {
			filter = "failed only"
		}
		headerView.SetText(fmt.Sprintf(
			" Run %s: %d tests, [green]%d passed[white], [red]%d failed[white] (%s) | ↑↓ navigate, → details, ← back, [yellow]F[white] filter, Ctrl+C exit ",
			record.Snapshot.RunStatus, len(results), counts[domain.TestStatusPassed], counts[domain.TestStatusFailed], filter,
		))
		updateDetails()
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'f' || event.Rune() == 'F' {
				failedOnly = !failedOnly
				rebuild()
				return nil
			}
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(int, string, string, rune) {
		updateDetails()
	})

	rebuild()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

func listItemText(number int, r domain.TestCaseResult) string {
	return fmt.Sprintf("[yellow]%d.[white] %s %s", number, statusMarker(r.Status), r.FullTestName)
}

func statusMarker(status domain.TestStatus) string {
	switch status {
	case domain.TestStatusPassed:
		return "[green]✓[white]"
	case domain.TestStatusFailed:
		return "[red]✗[white]"
	case domain.TestStatusRunning:
		return "[cyan]…[white]"
	default:
		return "[gray]·[white]"
	}
}

// formatResultStats formats the header line of the details pane
func formatResultStats(r domain.TestCaseResult) string {
	return fmt.Sprintf("[cyan]function:[white] [yellow]%s[white]  [cyan]test:[white] [yellow]%s[white]  [cyan]impl:[white] [yellow]%s[white]\n[cyan]status:[white] %s %s\n",
		tview.Escape(r.FunctionName), tview.Escape(r.TestName), tview.Escape(r.ImplName), statusMarker(r.Status), r.Status)
}

// formatResultDetails formats a test case using tview color tags
func formatResultDetails(r domain.TestCaseResult) string {
	var b strings.Builder

	section := func(title string, value *string) {
		if value == nil || *value == "" {
			return
		}
		fmt.Fprintf(&b, "[yellow]%s:[white]\n%s\n\n", title, tview.Escape(*value))
	}

	if r.URL != nil {
		fmt.Fprintf(&b, "[cyan]Trace: %s[white]\n\n", tview.Escape(*r.URL))
	}
	section("Error", r.Output.Error)
	section("Parsed", r.Output.Parsed)
	section("Raw Output", r.Output.Raw)
	if r.Output.Raw == nil {
		section("Partial Output", r.PartialOutput.Raw)
	}

	if b.Len() == 0 {
		return "[gray]No output recorded[white]"
	}
	return b.String()
}
