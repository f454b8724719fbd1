package types

// Location identifies where a rescued deal is collected.
type Location struct {
	Restaurant string `json:"restaurant"`
	Address    string `json:"address"`
}
