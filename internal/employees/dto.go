package employees

import "strings"

// Draft is the create/edit form for an employee.
type Draft struct {
	ID        int64  `json:"-" form:"-"`
	FirstName string `json:"first_name" form:"first_name" validate:"required"`
	LastName  string `json:"last_name" form:"last_name" validate:"required"`
	CompanyID int64  `json:"company_id" form:"company_id" validate:"required"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
}

// DraftFrom copies a persisted employee into an editable draft.
func DraftFrom(e Employee) *Draft {
	companyID := e.CompanyID
	if companyID == 0 && e.Company != nil {
		companyID = e.Company.ID
	}
	return &Draft{
		ID:        e.ID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		CompanyID: companyID,
		Email:     e.Email,
		Phone:     e.Phone,
	}
}

// DraftID implements forms.Draft.
func (d *Draft) DraftID() int64 {
	return d.ID
}

// Normalize trims surrounding whitespace.
func (d *Draft) Normalize() {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
}
