package store

import "testing"

func TestPaging_Normalize(t *testing.T) {
	tests := []struct {
		name           string
		in             Paging
		wantPageSize   int
		wantPageNumber int
	}{
		{"defaults applied for zero value", Paging{}, 50, 0},
		{"negative page size falls back", Paging{PageSize: -5, PageNumber: 2}, 50, 2},
		{"oversized page size falls back", Paging{PageSize: 5000, PageNumber: 0}, 50, 0},
		{"negative page number clamps to zero", Paging{PageSize: 20, PageNumber: -1}, 20, 0},
		{"in-range values pass through unchanged", Paging{PageSize: 25, PageNumber: 3}, 25, 3},
		{"upper bound is inclusive", Paging{PageSize: 500, PageNumber: 0}, 500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.normalize()
			if got.PageSize != tt.wantPageSize || got.PageNumber != tt.wantPageNumber {
				t.Errorf("normalize(%+v) = %+v, want {PageSize:%d PageNumber:%d}", tt.in, got, tt.wantPageSize, tt.wantPageNumber)
			}
		})
	}
}

func TestIsUniqueViolation_NonPgError(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Error("isUniqueViolation(nil) = true, want false")
	}
}
