/*
parser.go - Tabular roster file parsing

PURPOSE:
  Reads a roster export (CSV, .xlsx or legacy .xls) into RawScheduleRow
  values grouped by calendar date. Pure transform on the file bytes: no
  persistence, no classification decisions.

HEADER DETECTION:
  The first non-empty row must contain a date column and at least one of a
  duty-code or flight column. Header names are matched case-insensitively
  against a small set of synonyms since every airline labels its export
  differently ("Duty" vs "Code", "Report" vs "C/I", ...).

TOLERANCE:
  - Missing cells are fine: a day-off row has no flights or times.
  - Time cells accept HH:MM, H:MM and compact HHMM.
  - Date cells accept ISO, D/M/Y, "02 Jan 2006" and Excel serials.
  - A row with an empty date cell continues the previous day's duty
    (cross-day indicator); its times are merged into the previous row.

SEE ALSO:
  - types.go: RawScheduleRow and the parse error types
  - classify.go: What happens to the rows next
*/
package roster

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/warp/crewpay/duty"
)

// ContentType declares the roster file encoding.
type ContentType string

const (
	ContentCSV  ContentType = "csv"
	ContentXLSX ContentType = "xlsx"
	ContentXLS  ContentType = "xls"
)

// ContentTypeForFilename maps a file name to a ContentType by extension.
func ContentTypeForFilename(name string) (ContentType, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return ContentCSV, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return ContentXLSX, nil
	case strings.HasSuffix(lower, ".xls"):
		return ContentXLS, nil
	default:
		return "", &UnsupportedFormatError{ContentType: lower}
	}
}

// Parse reads the byte stream into schedule rows ordered as they appear in
// the file. The returned slice is finite; re-parsing requires re-reading the
// source.
func Parse(r io.Reader, contentType ContentType) ([]RawScheduleRow, error) {
	cells, err := readRows(r, contentType)
	if err != nil {
		return nil, err
	}
	return extractRows(cells)
}

// =============================================================================
// TABLE READING - per content type
// =============================================================================

func readRows(r io.Reader, contentType ContentType) ([][]string, error) {
	switch contentType {
	case ContentCSV:
		return readCSV(r)
	case ContentXLSX:
		return readXLSX(r)
	case ContentXLS:
		return readXLS(r)
	default:
		return nil, &UnsupportedFormatError{ContentType: string(contentType)}
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rosters pad rows unevenly
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &MalformedFileError{Reason: err.Error()}
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedFileError{Reason: err.Error()}
	}
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &MalformedFileError{Reason: err.Error()}
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, &MalformedFileError{Reason: "no worksheet found"}
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, &MalformedFileError{Reason: err.Error()}
	}
	return rows, nil
}

func readXLS(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedFileError{Reason: err.Error()}
	}
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &MalformedFileError{Reason: err.Error()}
	}
	if workbook.NumSheets() == 0 {
		return nil, &MalformedFileError{Reason: "no worksheet found"}
	}
	rows := workbook.ReadAllCells(100000)
	return rows, nil
}

// =============================================================================
// HEADER AND ROW EXTRACTION
// =============================================================================

// Column synonyms seen across airline exports.
var headerSynonyms = map[string]string{
	"date":             "date",
	"day":              "date",
	"duty":             "code",
	"code":             "code",
	"duty code":        "code",
	"activity":         "code",
	"flight":           "flights",
	"flights":          "flights",
	"flight no":        "flights",
	"flight number":    "flights",
	"flight numbers":   "flights",
	"sector":           "sectors",
	"sectors":          "sectors",
	"routing":          "sectors",
	"report":           "report",
	"reporting":        "report",
	"report time":      "report",
	"reporting time":   "report",
	"c/i":              "report",
	"debrief":          "debrief",
	"debriefing":       "debrief",
	"debrief time":     "debrief",
	"debriefing time":  "debrief",
	"c/o":              "debrief",
}

type columnIndex struct {
	date    int
	code    int
	flights int
	sectors int
	report  int
	debrief int
}

func findHeader(cells [][]string) (columnIndex, int, error) {
	idx := columnIndex{date: -1, code: -1, flights: -1, sectors: -1, report: -1, debrief: -1}

	for rowNum, row := range cells {
		if len(row) == 0 {
			continue
		}
		candidate := idx
		matched := 0
		for i, cell := range row {
			canonical, ok := headerSynonyms[strings.ToLower(strings.TrimSpace(cell))]
			if !ok {
				continue
			}
			matched++
			switch canonical {
			case "date":
				candidate.date = i
			case "code":
				candidate.code = i
			case "flights":
				candidate.flights = i
			case "sectors":
				candidate.sectors = i
			case "report":
				candidate.report = i
			case "debrief":
				candidate.debrief = i
			}
		}
		// A usable header names a date column plus duty or flight data.
		if candidate.date >= 0 && (candidate.code >= 0 || candidate.sectors >= 0) {
			return candidate, rowNum, nil
		}
		if matched > 0 {
			return idx, 0, &MalformedFileError{Reason: "header row is missing a date or duty column"}
		}
	}
	return idx, 0, &MalformedFileError{Reason: "no recognizable header row"}
}

func extractRows(cells [][]string) ([]RawScheduleRow, error) {
	cols, headerRow, err := findHeader(cells)
	if err != nil {
		return nil, err
	}

	var rows []RawScheduleRow
	for i := headerRow + 1; i < len(cells); i++ {
		row := cells[i]
		if isEmptyRow(row) {
			continue
		}

		raw := RawScheduleRow{
			Line:          i + 1,
			DutyCode:      cell(row, cols.code),
			FlightNumbers: splitTokens(cell(row, cols.flights)),
			Sectors:       splitTokens(cell(row, cols.sectors)),
			ReportTime:    cell(row, cols.report),
			DebriefTime:   cell(row, cols.debrief),
		}

		dateCell := cell(row, cols.date)
		if dateCell == "" {
			// Continuation of the previous day's duty: merge the extra leg
			// and late debrief into the prior row.
			if len(rows) > 0 {
				mergeContinuation(&rows[len(rows)-1], raw)
			}
			continue
		}

		date, ok := parseRosterDate(dateCell)
		if !ok {
			// Leave the date zero; classification reports it as a warning.
			rows = append(rows, raw)
			continue
		}
		raw.Date = date
		rows = append(rows, raw)
	}

	if len(rows) == 0 {
		return nil, &MalformedFileError{Reason: "no schedule rows under the header"}
	}
	return rows, nil
}

func mergeContinuation(prev *RawScheduleRow, cont RawScheduleRow) {
	prev.FlightNumbers = append(prev.FlightNumbers, cont.FlightNumbers...)
	prev.Sectors = append(prev.Sectors, cont.Sectors...)
	if cont.DebriefTime != "" {
		prev.DebriefTime = cont.DebriefTime
	}
	if prev.DutyCode == "" {
		prev.DutyCode = cont.DutyCode
	}
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '/' || r == ';'
	})
	var tokens []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			tokens = append(tokens, strings.ToUpper(f))
		}
	}
	return tokens
}

var rosterDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02 Jan 2006",
	"02Jan2006",
	"2006/01/02",
}

func parseRosterDate(value string) (duty.Date, bool) {
	value = strings.TrimSpace(value)

	// Excel serial dates survive the string conversion in some exports.
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 20000 && serial < 80000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return duty.NewDate(t.Year(), t.Month(), t.Day()), true
		}
	}

	for _, layout := range rosterDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return duty.NewDate(t.Year(), t.Month(), t.Day()), true
		}
	}
	return duty.Date{}, false
}
