package model

import "time"

type Campaign struct {
	Niche       string   `json:"niche"`
	CategoryID  string   `json:"category_id,omitempty"`
	Titles      []string `json:"titles"`
	Description string   `json:"description"`
}

type SearchHistory struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	ResultCount  int       `json:"result_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Favorite is a niche a user saved, with the result snapshot taken when it
// was saved.
type Favorite struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	NicheID   string      `json:"niche_id"`
	Niche     NicheResult `json:"niche_data"`
	CreatedAt time.Time   `json:"created_at"`
}
