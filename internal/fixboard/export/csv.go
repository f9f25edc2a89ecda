// Package export serializes the current filtered view to CSV. The output
// is meant for spreadsheet tools, so it leads with a UTF-8 byte-order
// marker and quotes per RFC 4180 with the quote character doubled.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/yshiraki/fixboard/internal/fixboard/engine"
	"github.com/yshiraki/fixboard/internal/fixboard/issue"
)

// Header is the fixed column set, matching the dashboard table.
var Header = []string{"ID", "ステータス", "優先度", "タイトル", "詳細説明", "カテゴリ", "担当者", "対象ページURL", "期限", "登録日"}

var bom = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the filtered, sorted view (not just the visible page)
// to w. The collection provides the global row numbers shown in the ID
// column. Returns the number of exported records.
func WriteCSV(w io.Writer, collection, view []issue.Issue) (int, error) {
	if len(view) == 0 {
		return 0, fmt.Errorf("no records to export")
	}

	if _, err := w.Write(bom); err != nil {
		return 0, fmt.Errorf("cannot write byte-order marker: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("cannot write CSV header: %w", err)
	}

	for _, record := range view {
		row := []string{
			fmt.Sprintf("#%d", engine.RowNumber(collection, record.ID)),
			string(record.Status),
			string(record.Priority),
			record.Title,
			record.Description,
			record.Category,
			record.Assignee,
			record.PageURL,
			dueDateColumn(record.DueDate),
			issue.FormatTimestamp(record.CreatedAt),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("cannot write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("cannot flush CSV: %w", err)
	}
	return len(view), nil
}

func dueDateColumn(d *issue.Date) string {
	if d == nil {
		return ""
	}
	return d.Display()
}

// Filename embeds the export timestamp, matching the name the dashboard
// has always produced.
func Filename(now time.Time) string {
	return fmt.Sprintf("修正管理表_%s.csv", now.Format("20060102_1504"))
}
