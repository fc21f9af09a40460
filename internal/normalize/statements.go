package normalize

import (
	"sort"

	"finfetch/internal/model"
)

// Providers drift on line-item naming between statement vintages; map
// the known aliases onto one canonical name before anything else reads
// the rows.
var canonicalLineItem = map[string]string{
	"operatingRevenue":                "totalRevenue",
	"sellingGeneralAndAdministrative": "sellingGeneralAndAdministration",
}

// sparseThreshold is the missing-value ratio above which a column or a
// row is dropped as unreliable.
const sparseThreshold = 0.8

// normalizeStatementRows turns raw statement entries into canonical
// rows: aliased keys folded together, sparse columns and rows dropped,
// rows ordered by date descending.
func normalizeStatementRows(entries []any) []model.StatementRow {
	rows := make([]model.StatementRow, 0, len(entries))
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		date := statementDate(entry)
		if date == "" {
			continue
		}
		values := map[string]*float64{}
		for key, val := range entry {
			if key == "endDate" || key == "maxAge" {
				continue
			}
			canon := key
			if mapped, ok := canonicalLineItem[key]; ok {
				canon = mapped
			}
			if existing, ok := values[canon]; ok && existing != nil {
				continue
			}
			if v, ok := rawNumber(val); ok {
				v := v
				values[canon] = &v
			} else {
				values[canon] = nil
			}
		}
		rows = append(rows, model.StatementRow{Date: date, Values: values})
	}
	if len(rows) == 0 {
		return nil
	}

	// Union of keys, then drop the mostly-missing columns.
	counts := map[string]int{}
	for _, row := range rows {
		for key, val := range row.Values {
			if val != nil {
				counts[key]++
			}
		}
	}
	allKeys := map[string]struct{}{}
	for _, row := range rows {
		for key := range row.Values {
			allKeys[key] = struct{}{}
		}
	}
	keep := map[string]struct{}{}
	total := len(rows)
	for key := range allKeys {
		missing := total - counts[key]
		if float64(missing)/float64(total) <= sparseThreshold {
			keep[key] = struct{}{}
		}
	}

	// Rebuild with a consistent column set, then drop rows that are
	// themselves mostly missing.
	out := make([]model.StatementRow, 0, len(rows))
	for _, row := range rows {
		values := make(map[string]*float64, len(keep))
		missing := 0
		for key := range keep {
			v := row.Values[key]
			values[key] = v
			if v == nil {
				missing++
			}
		}
		if len(keep) > 0 && float64(missing)/float64(len(keep)) > sparseThreshold {
			continue
		}
		out = append(out, model.StatementRow{Date: row.Date, Values: values})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}
