package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet renders each data row as "Header: value; Header: value",
// using the first row of every sheet as its header.
func extractSpreadsheet(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		header := rows[0]
		if len(rows) == 1 {
			lines = append(lines, strings.Join(header, "; "))
			continue
		}
		for _, row := range rows[1:] {
			var cells []string
			for i, v := range row {
				if v = strings.TrimSpace(v); v == "" {
					continue
				}
				if i < len(header) && strings.TrimSpace(header[i]) != "" {
					cells = append(cells, strings.TrimSpace(header[i])+": "+v)
				} else {
					cells = append(cells, v)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, "; "))
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
