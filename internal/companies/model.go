package companies

// Company represents a company record owned by the backend.
type Company struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Website string `json:"website"`
}
