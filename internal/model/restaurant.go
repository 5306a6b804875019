package model

// Restaurant is the read-only detail record resolved from the key-value
// store. Address may be empty; the composer omits the clause in that case.
type Restaurant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Cuisine string `json:"cuisine,omitempty"`
}
