package employees

import "strings"

// CompanyRef is the company embedded in some employee responses.
type CompanyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Employee represents an employee record owned by the backend.
type Employee struct {
	ID          int64       `json:"id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	CompanyID   int64       `json:"company_id"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	CompanyName string      `json:"company_name"`
	Company     *CompanyRef `json:"company,omitempty"`
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// DisplayCompany returns the denormalized company name for list rows.
func (e Employee) DisplayCompany() string {
	if e.CompanyName != "" {
		return e.CompanyName
	}
	if e.Company != nil {
		return e.Company.Name
	}
	return ""
}

// CompanyOption is one entry of the company select.
type CompanyOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
