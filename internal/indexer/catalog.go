package indexer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// catalogColumns maps accepted header spellings to course fields.
var catalogColumns = map[string]string{
	"code":               "code",
	"course":             "code",
	"course code":        "code",
	"name":               "name",
	"title":              "name",
	"description":        "description",
	"prerequisites":      "prerequisites",
	"prereqs":            "prerequisites",
	"prerequisites cmpe": "prerequisites_cmpe",
	"prerequisites_cmpe": "prerequisites_cmpe",
	"prerequisites se":   "prerequisites_se",
	"prerequisites_se":   "prerequisites_se",
	"units":              "units",
}

// ReadCourseCatalog reads course rows from every sheet whose header has a code column.
// ok is false when no sheet looks like a catalog.
func ReadCourseCatalog(content []byte, extractor entity.Extractor) (courses []models.Course, ok bool, err error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, false, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, false, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		cols := make(map[int]string)
		hasCode := false
		for i, h := range rows[0] {
			if field, known := catalogColumns[strings.ToLower(strings.TrimSpace(h))]; known {
				cols[i] = field
				hasCode = hasCode || field == "code"
			}
		}
		if !hasCode {
			continue
		}
		ok = true
		for _, row := range rows[1:] {
			if c, valid := courseFromRow(row, cols, extractor); valid {
				courses = append(courses, c)
			}
		}
	}
	return courses, ok, nil
}

func courseFromRow(row []string, cols map[int]string, extractor entity.Extractor) (models.Course, bool) {
	var c models.Course
	for i, v := range row {
		v = strings.TrimSpace(v)
		switch cols[i] {
		case "code":
			c.Code = v
			if codes := extractor.CourseCodes(v); len(codes) > 0 {
				c.Code = codes[0]
			}
		case "name":
			c.Name = v
		case "description":
			c.Description = v
		case "prerequisites":
			c.Prerequisites = v
		case "prerequisites_cmpe":
			c.PrerequisitesCMPE = v
		case "prerequisites_se":
			c.PrerequisitesSE = v
		case "units":
			c.Units, _ = strconv.Atoi(v)
		}
	}
	if c.Code == "" {
		return c, false
	}
	if c.Name == "" {
		c.Name = c.Code
	}
	return c, true
}
