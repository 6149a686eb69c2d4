package companies

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
)

const basePath = "/companies"

// ErrInvalidID is returned for identifiers the backend can never have issued.
var ErrInvalidID = errors.New("invalid company ID")

// Service maps company CRUD intents onto backend requests.
type Service struct {
	client *apiclient.Client
}

// NewService constructs a Service.
func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// List fetches one page of companies.
func (s *Service) List(ctx context.Context, token string, page, limit int) (apiclient.ListEnvelope[Company], error) {
	var env apiclient.ListEnvelope[Company]
	err := s.client.Do(ctx, token, http.MethodGet, basePath, apiclient.PageQuery(page, limit), nil, &env)
	return env, err
}

// Get fetches a single company.
func (s *Service) Get(ctx context.Context, token string, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, ErrInvalidID
	}
	var item apiclient.Item[Company]
	err := s.client.Do(ctx, token, http.MethodGet, itemPath(id), nil, nil, &item)
	return item.Value, err
}

// Create posts a new company.
func (s *Service) Create(ctx context.Context, token string, draft *Draft) error {
	return s.client.Do(ctx, token, http.MethodPost, basePath, nil, draft, nil)
}

// Update replaces the company identified by id.
func (s *Service) Update(ctx context.Context, token string, id int64, draft *Draft) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.client.Do(ctx, token, http.MethodPut, itemPath(id), nil, draft, nil)
}

// Delete removes the company identified by id.
func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.client.Do(ctx, token, http.MethodDelete, itemPath(id), nil, nil, nil)
}

func itemPath(id int64) string {
	return basePath + "/" + strconv.FormatInt(id, 10)
}
