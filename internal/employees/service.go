package employees

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
)

const (
	basePath      = "/employees"
	companiesPath = "/companies"
	// optionsLimit is the most companies the select offers.
	optionsLimit = 100
)

// ErrInvalidID is returned for identifiers the backend can never have issued.
var ErrInvalidID = errors.New("invalid employee ID")

// Service maps employee CRUD intents onto backend requests.
type Service struct {
	client *apiclient.Client
}

// NewService constructs a Service.
func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// List fetches one page of employees.
func (s *Service) List(ctx context.Context, token string, page, limit int) (apiclient.ListEnvelope[Employee], error) {
	var env apiclient.ListEnvelope[Employee]
	err := s.client.Do(ctx, token, http.MethodGet, basePath, apiclient.PageQuery(page, limit), nil, &env)
	return env, err
}

// Get fetches a single employee.
func (s *Service) Get(ctx context.Context, token string, id int64) (Employee, error) {
	if id <= 0 {
		return Employee{}, ErrInvalidID
	}
	var item apiclient.Item[Employee]
	err := s.client.Do(ctx, token, http.MethodGet, itemPath(id), nil, nil, &item)
	return item.Value, err
}

// Create posts a new employee.
func (s *Service) Create(ctx context.Context, token string, draft *Draft) error {
	return s.client.Do(ctx, token, http.MethodPost, basePath, nil, draft, nil)
}

// Update replaces the employee identified by id.
func (s *Service) Update(ctx context.Context, token string, id int64, draft *Draft) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.client.Do(ctx, token, http.MethodPut, itemPath(id), nil, draft, nil)
}

// Delete removes the employee identified by id.
func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.client.Do(ctx, token, http.MethodDelete, itemPath(id), nil, nil, nil)
}

// CompanyOptions loads the companies offered by the employee form's select.
func (s *Service) CompanyOptions(ctx context.Context, token string) ([]CompanyOption, error) {
	var env apiclient.ListEnvelope[CompanyOption]
	if err := s.client.Do(ctx, token, http.MethodGet, companiesPath, apiclient.PageQuery(1, optionsLimit), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func itemPath(id int64) string {
	return basePath + "/" + strconv.FormatInt(id, 10)
}
