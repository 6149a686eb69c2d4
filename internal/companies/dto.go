package companies

import "strings"

// Draft is the create/edit form for a company. ID is zero until the backend
// has assigned one.
type Draft struct {
	ID      int64  `json:"-" form:"-"`
	Name    string `json:"name" form:"name" validate:"required"`
	Email   string `json:"email" form:"email"`
	Address string `json:"address" form:"address"`
	Website string `json:"website" form:"website"`
}

// DraftFrom copies a persisted company into an editable draft.
func DraftFrom(c Company) *Draft {
	return &Draft{ID: c.ID, Name: c.Name, Email: c.Email, Address: c.Address, Website: c.Website}
}

// DraftID implements forms.Draft.
func (d *Draft) DraftID() int64 {
	return d.ID
}

// Normalize trims surrounding whitespace. Address keeps its inner line breaks.
func (d *Draft) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Address = strings.TrimSpace(d.Address)
	d.Website = strings.TrimSpace(d.Website)
}
