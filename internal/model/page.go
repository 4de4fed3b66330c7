package model

// Page is one page of a filtered collection
type Page[T any] struct {
	List  []T `json:"list"`
	Total int `json:"total"` // matches before pagination
}
