package model

// Listing is a marketplace item as returned by the items endpoint.
type Listing struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	CurrencyID   string  `json:"currency_id,omitempty"`
	SoldQuantity int     `json:"sold_quantity"`
	SellerID     int64   `json:"seller_id"`
	CategoryID   string  `json:"category_id,omitempty"`
	Condition    string  `json:"condition,omitempty"`
	Permalink    string  `json:"permalink,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
}

// Badge marks standout niches.
type Badge string

const (
	BadgeNone        Badge = ""
	BadgeTop10       Badge = "top-10"
	BadgeRising      Badge = "rising"
	BadgeCompetitive Badge = "competitive"
)

// NicheResult is a scored group of listings sharing a niche key.
type NicheResult struct {
	Niche         string  `json:"niche"`
	Score         int     `json:"score"`
	Demand        int     `json:"demand"`
	Competition   int     `json:"competition"`
	Profitability int     `json:"profitability"`
	AvgPrice      float64 `json:"avgPrice"`
	TotalSold     int     `json:"totalSold"`
	TotalItems    int     `json:"totalItems"`
	UniqueSellers int     `json:"uniqueSellers"`
	Explanation   string  `json:"explanation"`
	Badge         Badge   `json:"badge,omitempty"`
}

type Category struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	TotalItems   int        `json:"total_items_in_this_category,omitempty"`
	PathFromRoot []Category `json:"path_from_root,omitempty"`
	Children     []Category `json:"children_categories,omitempty"`
}
