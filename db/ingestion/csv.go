// Package ingestion imports tariff workbooks: parse → validate → back up → commit.
// Parsing never touches the store; committing never re-reads the source.
package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"motor-tariff/core/tariff"
)

// ImportedRow is one parsed workbook row
type ImportedRow struct {
	Key  tariff.Key
	Row  tariff.Row
	Line int
	// Display is the workbook key ("01-05", "tourist-12")
	Display string
}

// Issue is a row that was skipped during import
type Issue struct {
	Sheet  string `json:"sheet"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d: %s", i.Sheet, i.Line, i.Reason)
}

// column names accepted for each field, Arabic workbook header first
var (
	colCode     = []string{"الرمز", "code"}
	colVehicle  = []string{"نوع المركبة", "vehicle type", "vehicle_type"}
	colCategory = []string{"الفئة", "category"}
	colDuration = []string{"المدة", "duration"}

	colNetInternal = []string{"البدل الصافي الجديد", "net premium", "net_premium"}
	colNetBorder   = []string{"البدل المقترح", "net premium", "net_premium"}
	colStamp       = []string{"رسم الطابع", "stamp fee", "stamp_fee"}
	colWar         = []string{"مجهود حربي", "war effort", "war_effort"}
	colLocal       = []string{"الادارة المحلية", "local administration", "local_administration"}
	colReconI      = []string{"اعمار", "reconstruction"}
	colReconB      = []string{"رسم اعمار", "اعمار", "reconstruction"}
	colMartyrI     = []string{"طابع شهيد", "martyr fund", "martyr_fund"}
	colMartyrB     = []string{"طابع الشهيد", "طابع شهيد", "martyr fund", "martyr_fund"}
	colTotal       = []string{"الإجمالي", "total"}
)

var borderTypeNames = map[string]tariff.BorderVehicleType{
	"سياحية":      tariff.BorderTourist,
	"دراجة نارية": tariff.BorderMotorcycle,
	"باص":         tariff.BorderBus,
	"بقية الفئات": tariff.BorderOther,
}

// ErrHeaderNotFound is returned when no row carries the required column names
var ErrHeaderNotFound = errors.New("header row not found")

type header map[string]int

func (h header) index(names []string) int {
	for _, n := range names {
		if i, ok := h[normalizeHeader(n)]; ok {
			return i
		}
	}
	return -1
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "﻿")))
}

// readSheet reads all records and locates the first row holding every required column
func readSheet(r io.Reader, required ...[]string) ([][]string, header, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read csv: %w", err)
	}

	for i, rec := range records {
		h := make(header, len(rec))
		for j, c := range rec {
			if n := normalizeHeader(c); n != "" {
				if _, dup := h[n]; !dup {
					h[n] = j
				}
			}
		}
		found := true
		for _, names := range required {
			if h.index(names) < 0 {
				found = false
				break
			}
		}
		if found {
			return records, h, i, nil
		}
	}
	return nil, nil, 0, ErrHeaderNotFound
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ParseAmount parses a workbook amount cell. Thousands separators and a
// zero fraction are accepted; an empty cell is zero; a real fraction is rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.NewReplacer(",", "", "٬", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("amount %s is not a whole number", d)
	}
	return d.IntPart(), nil
}

type amountColumns struct {
	net, stamp, war, local, recon, martyr, total int
}

func (c amountColumns) row(rec []string) (tariff.Row, error) {
	var r tariff.Row
	fields := []struct {
		idx int
		dst *int64
	}{
		{c.net, &r.NetPremium},
		{c.stamp, &r.StampFee},
		{c.war, &r.WarEffort},
		{c.local, &r.LocalAdministration},
		{c.recon, &r.Reconstruction},
		{c.martyr, &r.MartyrFund},
		{c.total, &r.Total},
	}
	for _, f := range fields {
		v, err := ParseAmount(cell(rec, f.idx))
		if err != nil {
			return r, err
		}
		*f.dst = v
	}
	return r, nil
}

// ParseInternal reads the Internal sheet.
// The code column holds the full table code; the category column ("01 خاص")
// decides which offset is subtracted to recover the base type.
func ParseInternal(r io.Reader) ([]ImportedRow, []Issue, error) {
	records, h, at, err := readSheet(r, colCode, colVehicle, colCategory)
	if err != nil {
		return nil, nil, fmt.Errorf("internal sheet: %w", err)
	}

	idxCode, idxVeh, idxCat := h.index(colCode), h.index(colVehicle), h.index(colCategory)
	cols := amountColumns{
		net:    h.index(colNetInternal),
		stamp:  h.index(colStamp),
		war:    h.index(colWar),
		local:  h.index(colLocal),
		recon:  h.index(colReconI),
		martyr: h.index(colMartyrI),
		total:  h.index(colTotal),
	}

	var rows []ImportedRow
	var issues []Issue
	for i := at + 1; i < len(records); i++ {
		rec := records[i]
		line := i + 1
		codeRaw, catRaw, label := cell(rec, idxCode), cell(rec, idxCat), cell(rec, idxVeh)
		if codeRaw == "" && catRaw == "" && label == "" {
			continue
		}

		code, err := ParseAmount(codeRaw)
		if err != nil || code <= 0 || catRaw == "" || label == "" {
			issues = append(issues, Issue{"Internal", line, "incomplete row"})
			continue
		}

		cat, ok := tariff.ParseCategory(leadingDigits(catRaw, 2))
		if !ok {
			issues = append(issues, Issue{"Internal", line, fmt.Sprintf("unknown category %q", catRaw)})
			continue
		}
		off, _ := tariff.CategoryOffset(cat)
		base := int(code) - off
		if base < 1 || base > tariff.MaxBaseType {
			issues = append(issues, Issue{"Internal", line,
				fmt.Sprintf("code %d is outside category %s", code, cat)})
			continue
		}

		row, err := cols.row(rec)
		if err != nil {
			issues = append(issues, Issue{"Internal", line, err.Error()})
			continue
		}
		row.Label = label

		rows = append(rows, ImportedRow{
			Key:     tariff.InternalKey(int(code)),
			Row:     row,
			Line:    line,
			Display: tariff.InternalKeyString(cat, base),
		})
	}
	return rows, issues, nil
}

// ParseBorder reads the Border sheet
func ParseBorder(r io.Reader) ([]ImportedRow, []Issue, error) {
	records, h, at, err := readSheet(r, colCode, colVehicle, colDuration)
	if err != nil {
		return nil, nil, fmt.Errorf("border sheet: %w", err)
	}

	idxVeh, idxDur := h.index(colVehicle), h.index(colDuration)
	cols := amountColumns{
		net:    h.index(colNetBorder),
		stamp:  h.index(colStamp),
		war:    h.index(colWar),
		local:  h.index(colLocal),
		recon:  h.index(colReconB),
		martyr: h.index(colMartyrB),
		total:  h.index(colTotal),
	}

	var rows []ImportedRow
	var issues []Issue
	for i := at + 1; i < len(records); i++ {
		rec := records[i]
		line := i + 1
		name := cell(rec, idxVeh)
		if name == "" {
			continue
		}

		vt, ok := borderTypeNames[name]
		if !ok {
			if vt, ok = tariff.ParseBorderVehicleType(name); !ok {
				issues = append(issues, Issue{"Border", line, fmt.Sprintf("unknown vehicle type %q", name)})
				continue
			}
		}

		months := durationMonths(cell(rec, idxDur))
		code, err := tariff.BorderCode(vt, months)
		if err != nil {
			issues = append(issues, Issue{"Border", line, err.Error()})
			continue
		}

		row, err := cols.row(rec)
		if err != nil {
			issues = append(issues, Issue{"Border", line, err.Error()})
			continue
		}
		row.Label = name

		rows = append(rows, ImportedRow{
			Key:     tariff.BorderKey(code),
			Row:     row,
			Line:    line,
			Display: tariff.BorderKeyString(vt, months),
		})
	}
	return rows, issues, nil
}

// durationMonths reads "3 أشهر", "6 months" or "سنة". Anything without a 3 or a 6 is a year.
func durationMonths(s string) int {
	if n, err := strconv.Atoi(leadingDigits(s, 2)); err == nil {
		if _, ok := tariff.DurationIndex(n); ok {
			return n
		}
	}
	switch {
	case strings.Contains(s, "3"):
		return 3
	case strings.Contains(s, "6"):
		return 6
	default:
		return 12
	}
}

func leadingDigits(s string, max int) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && end < max && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
