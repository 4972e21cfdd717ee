package model

// Company is reference data for a listed symbol.
type Company struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
