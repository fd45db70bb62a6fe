package domain

import "sort"

// DistinctSpecies returns the unique species names of records, sorted
// byte-wise (case-sensitive).
func DistinctSpecies(records []OccurrenceRecord) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.SpeciesName]; ok {
			continue
		}
		seen[r.SpeciesName] = struct{}{}
		names = append(names, r.SpeciesName)
	}
	sort.Strings(names)
	return names
}

// FilterBySpecies returns the records whose species matches name exactly, in
// input order.
func FilterBySpecies(records []OccurrenceRecord, name string) []OccurrenceRecord {
	out := make([]OccurrenceRecord, 0)
	for _, r := range records {
		if r.SpeciesName == name {
			out = append(out, r)
		}
	}
	return out
}
