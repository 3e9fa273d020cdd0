package source

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	appLog "schedics/internal/log"
)

var (
	timeRE = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})`)
	dateRE = regexp.MustCompile(`(\d{1,2})[.,](\d{1,2})`)
)

// ScanOptions bounds the grid scan.
type ScanOptions struct {
	// Sheet is the worksheet name; empty means the first sheet.
	Sheet string
	// MaxHeaderRows is how many leading rows are searched for weekday
	// header cells.
	MaxHeaderRows int
	// DateScanUp is how many rows above a lesson cell are searched for
	// its "DD.MM" date label.
	DateScanUp int
}

// mergedRange is a resolved merged-cell range with 1-based bounds.
type mergedRange struct {
	minRow, minCol int
	maxRow, maxCol int
	value          string
}

// ScanWorkbook reads the XLSX document and extracts raw schedule entries
// from its grid: weekday names in the header rows mark day columns, and
// "HH:MM - HH:MM" labels in column A mark lesson rows. Every non-empty
// cell at such an intersection becomes one RawEntry. Merged cells carry
// the top-left value and are emitted once.
func ScanWorkbook(r io.Reader, opts ScanOptions) ([]RawEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable workbook: %v", ErrFormatChanged, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrFormatChanged)
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrFormatChanged, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrFormatChanged, sheet, err)
	}

	merges, err := mergedRanges(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: merged cells of %q: %v", ErrFormatChanged, sheet, err)
	}

	// Day columns from the weekday header.
	dayCols := map[int]string{}
	for ri := 0; ri < len(rows) && ri < opts.MaxHeaderRows; ri++ {
		for ci, val := range rows[ri] {
			if _, ok := ParseWeekday(val); ok {
				dayCols[ci+1] = strings.TrimSpace(val)
			}
		}
	}
	if len(dayCols) == 0 {
		return nil, fmt.Errorf("%w: no weekday header in first %d rows of %q",
			ErrFormatChanged, opts.MaxHeaderRows, sheet)
	}

	// Lesson rows from the time labels in column A.
	timeRows := map[int]string{}
	for ri, row := range rows {
		if len(row) == 0 {
			continue
		}
		if m := timeRE.FindString(row[0]); m != "" {
			timeRows[ri+1] = strings.TrimSpace(row[0])
		}
	}
	if len(timeRows) == 0 {
		return nil, fmt.Errorf("%w: no time labels in column A of %q", ErrFormatChanged, sheet)
	}

	rowNums := make([]int, 0, len(timeRows))
	for rn := range timeRows {
		rowNums = append(rowNums, rn)
	}
	sort.Ints(rowNums)

	colNums := make([]int, 0, len(dayCols))
	for cn := range dayCols {
		colNums = append(colNums, cn)
	}
	sort.Ints(colNums)

	entries := make([]RawEntry, 0)
	for _, rn := range rowNums {
		for _, cn := range colNums {
			val := cellValue(rows, merges, rn, cn)
			if strings.TrimSpace(val) == "" {
				continue
			}
			// A merged lesson cell spans several time rows; only its
			// top-left member produces an entry.
			if !isTopLeft(merges, rn, cn) {
				continue
			}
			ref, _ := excelize.CoordinatesToCellName(cn, rn)
			entries = append(entries, RawEntry{
				Day:       dayCols[cn],
				Time:      timeRows[rn],
				DateLabel: findDateLabel(rows, merges, rn, cn, opts.DateScanUp),
				Text:      strings.TrimSpace(val),
				Ref:       ref,
			})
		}
	}

	appLog.Debug("workbook scan completed",
		"sheet", sheet,
		"day_columns", len(dayCols),
		"time_rows", len(timeRows),
		"entries", len(entries),
	)

	return entries, nil
}

func mergedRanges(f *excelize.File, sheet string) ([]mergedRange, error) {
	cells, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}

	out := make([]mergedRange, 0, len(cells))
	for _, mc := range cells {
		minCol, minRow, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			return nil, err
		}
		maxCol, maxRow, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			return nil, err
		}
		out = append(out, mergedRange{
			minRow: minRow, minCol: minCol,
			maxRow: maxRow, maxCol: maxCol,
			value: mc.GetCellValue(),
		})
	}
	return out, nil
}

// cellValue returns the visible value at the 1-based (row, col): the raw
// cell value, or the merged range's top-left value when the cell is a
// member of a merge.
func cellValue(rows [][]string, merges []mergedRange, row, col int) string {
	if row-1 < len(rows) && col-1 < len(rows[row-1]) {
		if v := rows[row-1][col-1]; v != "" {
			return v
		}
	}
	for _, m := range merges {
		if m.minRow <= row && row <= m.maxRow && m.minCol <= col && col <= m.maxCol {
			return m.value
		}
	}
	return ""
}

func isTopLeft(merges []mergedRange, row, col int) bool {
	for _, m := range merges {
		if m.minRow <= row && row <= m.maxRow && m.minCol <= col && col <= m.maxCol {
			return row == m.minRow && col == m.minCol
		}
	}
	return true
}

// findDateLabel scans upward from (row, col) looking for a "DD.MM" label,
// which schedule sheets usually put in a header cell above each day
// block. Returns "" when none is present within scanUp rows.
func findDateLabel(rows [][]string, merges []mergedRange, row, col, scanUp int) string {
	for r := row; r > row-scanUp && r > 0; r-- {
		val := cellValue(rows, merges, r, col)
		if m := dateRE.FindString(val); m != "" {
			return m
		}
	}
	return ""
}
