package models

// PlaceFilter represents filter parameters for querying places
type PlaceFilter struct {
	TripID      int64 `form:"tripId"`
	RegionID    int64 `form:"regionId"`
	HasLocation *bool `form:"hasLocation"`
	Page        int   `form:"page"`
	PageSize    int   `form:"pageSize"`
}

// normalizePage applies the default and maximum page sizes
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	return page, pageSize
}

// Normalize applies pagination defaults
func (f *PlaceFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

// Normalize applies pagination defaults
func (f *VisitFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

// TotalPages returns the number of pages needed for total rows
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
