package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"signon/backend/internal/connector"
	"signon/backend/internal/connector/domain"
	"signon/backend/internal/connector/service"
)

type memStore struct {
	configs map[string]*domain.ConnectorConfig
}

func newMemStore() *memStore {
	return &memStore{configs: map[string]*domain.ConnectorConfig{}}
}

func (s *memStore) GetAll(ctx context.Context) ([]*domain.ConnectorConfig, error) {
	out := make([]*domain.ConnectorConfig, 0, len(s.configs))
	for _, c := range s.configs {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) GetByID(ctx context.Context, connectorID string) (*domain.ConnectorConfig, error) {
	c, ok := s.configs[connectorID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) Upsert(ctx context.Context, c *domain.ConnectorConfig) error {
	if existing, ok := s.configs[c.ConnectorID]; ok {
		existing.Config = c.Config
		existing.Target = c.Target
		return nil
	}
	cp := *c
	s.configs[c.ConnectorID] = &cp
	return nil
}

func (s *memStore) SetEnabled(ctx context.Context, connectorID string, enabled bool) error {
	if c, ok := s.configs[connectorID]; ok {
		c.Enabled = enabled
	}
	return nil
}

func (s *memStore) SetEnabledExclusive(ctx context.Context, connectorID string, typ connector.Type) error {
	for id, c := range s.configs {
		if c.Type == typ {
			c.Enabled = id == connectorID
		}
	}
	return nil
}

func newTestRouter() *mux.Router {
	r := mux.NewRouter()
	New(service.NewRegistry(newMemStore()), nil, nil).RegisterRoutes(r)
	return r
}

func TestListConnectors(t *testing.T) {
	r := newTestRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/connectors", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var views []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != len(connector.Implementations()) {
		t.Errorf("len(views) = %d, want %d", len(views), len(connector.Implementations()))
	}
}

func TestGetConnectorUnknownID(t *testing.T) {
	r := newTestRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/connectors/no-such", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["code"] != "connector.not_found_with_connector_id" {
		t.Errorf("code = %v, want connector.not_found_with_connector_id", body["code"])
	}
}

func TestPatchConfigThenEnable(t *testing.T) {
	r := newTestRouter()

	config := `{"config":{"accountSID":"sid","authToken":"token","templates":[` +
		`{"usageType":"SignIn","content":"{{code}}"},` +
		`{"usageType":"Register","content":"{{code}}"},` +
		`{"usageType":"Test","content":"{{code}}"}]}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/connectors/mock-short-message-service", strings.NewReader(config))
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch config status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/connectors/mock-short-message-service/enabled", strings.NewReader(`{"enabled":true}`))
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch enabled status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var view map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view["enabled"] != true {
		t.Errorf("enabled = %v, want true", view["enabled"])
	}
}

func TestPatchConfigInvalid(t *testing.T) {
	r := newTestRouter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/connectors/mock-short-message-service", strings.NewReader(`{"config":{}}`))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["code"] != "connector.invalid_config" {
		t.Errorf("code = %v, want connector.invalid_config", body["code"])
	}
}

func TestPatchEnabledMissingField(t *testing.T) {
	r := newTestRouter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/connectors/mock-short-message-service/enabled", strings.NewReader(`{}`))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
