package model

// Stats is the admin dashboard summary.
type Stats struct {
	Items  ItemStats  `json:"items"`
	Claims ClaimStats `json:"claims"`
	Users  UserStats  `json:"users"`
}

// ItemStats counts non-deleted items.
type ItemStats struct {
	Total    int `json:"total"`
	Lost     int `json:"lost"`
	Found    int `json:"found"`
	Open     int `json:"open"`
	Claimed  int `json:"claimed"`
	Resolved int `json:"resolved"`
}

// ClaimStats counts claims by status.
type ClaimStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// UserStats counts accounts.
type UserStats struct {
	Total int `json:"total"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes the page count for total results.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Overview is the admin dashboard: counts plus the latest activity.
type Overview struct {
	Stats        *Stats  `json:"stats"`
	RecentItems  []Item  `json:"recent_items"`
	RecentClaims []Claim `json:"recent_claims"`
}
