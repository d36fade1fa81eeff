package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/the-line/internal/logger"
)

const (
	viewTitle        = "Current queue"
	historyHeader    = "📜 Action history:"
	historyEmpty     = "Action history is empty."
	historyError     = "An error occurred while loading history."
	historyTimestamp = "2006-01-02 15:04:05"
)

// View renders the organization's queue as a bordered listing.
func (e *Engine) View(ctx context.Context, orgID int64) string {
	members := e.Snapshot(orgID)
	if len(members) == 0 {
		return TextEmpty
	}

	rows := make([]string, len(members))
	width := runewidth.StringWidth(viewTitle)
	for i, m := range members {
		rows[i] = fmt.Sprintf("%d. %s", i+1, m.Name)
		if w := runewidth.StringWidth(rows[i]); w > width {
			width = w
		}
	}

	var b strings.Builder
	rule := strings.Repeat("═", width+2)
	b.WriteString("╔" + rule + "╗\n")
	b.WriteString("║ " + center(viewTitle, width) + " ║\n")
	b.WriteString("╟" + strings.Repeat("─", width+2) + "╢\n")
	for _, row := range rows {
		b.WriteString("║ " + runewidth.FillRight(row, width) + " ║\n")
	}
	b.WriteString("╚" + rule + "╝")
	return b.String()
}

func center(s string, width int) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// Stats summarizes the organization's queue.
func (e *Engine) Stats(ctx context.Context, orgID int64) string {
	members := e.Snapshot(orgID)
	if len(members) == 0 {
		return TextEmpty
	}

	head := members[0]
	wait := strings.TrimSpace(humanize.RelTime(head.JoinedAt, e.now(), "", ""))
	return fmt.Sprintf("📊 Queue statistics:\nIn queue: %d\nFirst: %s\nLongest wait: %s", len(members), head.Name, wait)
}

// History renders the user's recorded actions, newest first.
func (e *Engine) History(ctx context.Context, userID int64) string {
	records, err := e.store.UserHistory(ctx, userID)
	if err != nil {
		logger.Errorf("History: userId=%d: %v", userID, err)
		return historyError
	}
	if len(records) == 0 {
		return historyEmpty
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, historyHeader)
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", r.Timestamp.Format(historyTimestamp), r.UserName, r.Action))
	}
	return strings.Join(lines, "\n")
}
