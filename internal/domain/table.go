package domain

import "sort"

// DefaultCantonTopN is the row limit of the canton bar chart.
const DefaultCantonTopN = 15

// Row is one bar of an aggregation chart.
type Row struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AggregationResult is the sorted table consumed by bar charts.
type AggregationResult struct {
	Level Level `json:"level"`
	Rows  []Row `json:"rows"`
}

// BuildTable joins counts to region names, keeps regions with at least one
// record, and sorts descending by count. Ties keep the registry order of the
// level. A positive topN truncates the sorted rows; zero or negative keeps all.
func BuildTable(counts RegionCounts, reg *Registry, level Level, topN int) AggregationResult {
	rows := make([]Row, 0)
	for _, g := range reg.Regions(level) {
		n := counts[g.Code]
		if n <= 0 {
			continue
		}
		rows = append(rows, Row{Code: g.Code, Name: g.Name, Count: n})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})

	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	return AggregationResult{Level: level, Rows: rows}
}
