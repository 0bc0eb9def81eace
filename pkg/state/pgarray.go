package state

import "github.com/jackc/pgx/v5/pgtype"

// int64ArrayValue builds a pgtype.Array[int64] suitable for use as a query
// argument against a bigint[] column, via the pgx stdlib driver.
func int64ArrayValue(vals []int64) pgtype.Array[int64] {
	return pgtype.Array[int64]{
		Elements: vals,
		Dims:     []pgtype.ArrayDimension{{Length: int32(len(vals)), LowerBound: 1}},
		Valid:    true,
	}
}

// int64ArraySlice extracts the Go slice from a scanned pgtype.Array[int64],
// treating an invalid (NULL) array as empty rather than nil to keep callers
// from special-casing NULL vs. empty-array columns.
func int64ArraySlice(arr pgtype.Array[int64]) []int64 {
	if !arr.Valid {
		return []int64{}
	}
	return arr.Elements
}

// stringArrayValue builds a pgtype.Array[string] suitable for use as a
// query argument against a text[] column.
func stringArrayValue(vals []string) pgtype.Array[string] {
	return pgtype.Array[string]{
		Elements: vals,
		Dims:     []pgtype.ArrayDimension{{Length: int32(len(vals)), LowerBound: 1}},
		Valid:    true,
	}
}

// stringArraySlice extracts the Go slice from a scanned pgtype.Array[string].
func stringArraySlice(arr pgtype.Array[string]) []string {
	if !arr.Valid {
		return nil
	}
	return arr.Elements
}
