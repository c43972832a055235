package openapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/internal/testutil"
	"github.com/brendan.keane/svcbase/pkg/service"
)

func loadedCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog := NewCatalog(nil)
	require.NoError(t, catalog.LoadBytes([]byte(testutil.OrdersAPISpec)))
	return catalog
}

func TestCatalog_Actions(t *testing.T) {
	catalog := loadedCatalog(t)

	actions, err := catalog.Actions("orders")
	require.NoError(t, err)

	var names []string
	for _, a := range actions {
		names = append(names, a.String())
	}
	assert.Equal(t, []string{"POST create", "GET export", "GET find", "POST search"}, names)

	create := actions[0]
	assert.Equal(t, "/orders/create", create.Path)
	assert.Equal(t, "Create an order", create.Summary)
	assert.True(t, create.BodyRequired)
	assert.Equal(t, []string{"application/json"}, create.ContentTypes)

	find := actions[2]
	require.Len(t, find.QueryParams, 1)
	assert.Equal(t, Param{Name: "id", Required: true, Type: "string"}, find.QueryParams[0])
	assert.Empty(t, find.ContentTypes)
}

func TestCatalog_ActionsControllerForms(t *testing.T) {
	catalog := loadedCatalog(t)

	for _, controller := range []string{"orders", "/orders", "orders/", "/orders/"} {
		actions, err := catalog.Actions(controller)
		require.NoError(t, err)
		assert.Len(t, actions, 4, controller)
	}

	all, err := catalog.Actions("")
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "health", all[0].Name)

	none, err := catalog.Actions("invoices")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalog_NotLoaded(t *testing.T) {
	catalog := NewCatalog(nil)

	_, err := catalog.Actions("orders")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOpenAPI))
	assert.False(t, catalog.Loaded())
	assert.Nil(t, catalog.Info())
	assert.Empty(t, catalog.ServerURL())
	assert.Nil(t, catalog.ActionNames("orders", "", ""))
}

func TestCatalog_ActionNames(t *testing.T) {
	catalog := loadedCatalog(t)

	tests := []struct {
		name     string
		method   string
		prefix   string
		expected []string
	}{
		{"all", "", "", []string{"create", "export", "find", "search"}},
		{"prefix", "*", "s", []string{"search"}},
		{"get only", "GET", "", []string{"export", "find"}},
		{"method list", "get, post", "c", []string{"create"}},
		{"no match", "DELETE", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, catalog.ActionNames("orders", tt.method, tt.prefix))
		})
	}
}

func TestCatalog_Find(t *testing.T) {
	catalog := loadedCatalog(t)

	a, ok := catalog.Find("orders", "search", "post")
	require.True(t, ok)
	assert.Equal(t, service.FormURLEncoded, ContentTypeFor(a))

	_, ok = catalog.Find("orders", "search", "GET")
	assert.False(t, ok)
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		types    []string
		expected service.ContentType
	}{
		{"json", []string{"application/json"}, service.ApplicationJSON},
		{"json with charset", []string{"application/json; charset=utf-8"}, service.ApplicationJSON},
		{"form", []string{"application/x-www-form-urlencoded"}, service.FormURLEncoded},
		{"json wins", []string{"application/x-www-form-urlencoded", "application/json"}, service.ApplicationJSON},
		{"multipart is unknown", []string{"multipart/form-data"}, service.Unknown},
		{"no body", nil, service.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentTypeFor(Action{ContentTypes: tt.types}))
		})
	}
}

func TestCatalog_LoadSources(t *testing.T) {
	dir := t.TempDir()
	specFile := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(specFile, []byte(testutil.OrdersAPISpec), 0644))

	server := testutil.NewServiceTestServer(testutil.OrdersAPISpec)
	defer server.Close()

	sources := map[string]string{
		"plain path": specFile,
		"file URI":   "file://" + specFile,
		"http URL":   server.URL + "/openapi.json",
	}

	for name, source := range sources {
		t.Run(name, func(t *testing.T) {
			catalog := NewCatalog(server.Client())
			require.NoError(t, catalog.Load(context.Background(), source))

			assert.True(t, catalog.Loaded())
			assert.Equal(t, "Orders API", catalog.Info().Title)
			assert.Equal(t, "https://orders.example.com/api/", catalog.ServerURL())
		})
	}
}

func TestCatalog_LoadFailures(t *testing.T) {
	server := testutil.NewServiceTestServer("")
	defer server.Close()

	dir := t.TempDir()
	invalidFile := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalidFile, []byte(testutil.InvalidSpec), 0644))

	tests := []struct {
		name    string
		source  string
		errType errors.ErrorType
	}{
		{"missing file", filepath.Join(dir, "missing.json"), errors.ErrorTypeOpenAPI},
		{"invalid document", invalidFile, errors.ErrorTypeOpenAPI},
		{"not found", server.URL + "/openapi.json", errors.ErrorTypeOpenAPI},
		{"unreachable", "http://127.0.0.1:1/openapi.json", errors.ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := NewCatalog(server.Client())
			err := catalog.Load(context.Background(), tt.source)
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.GetType(err))
			assert.False(t, catalog.Loaded())
		})
	}
}

func TestCatalog_LoadYAML(t *testing.T) {
	spec := `
openapi: 3.0.0
info:
  title: Billing
  version: "1"
paths:
  /invoices/issue:
    put:
      summary: Issue an invoice
      requestBody:
        content:
          application/json:
            schema:
              type: object
      responses:
        "200":
          description: ok
`
	catalog := NewCatalog(nil)
	require.NoError(t, catalog.LoadBytes([]byte(spec)))

	actions, err := catalog.Actions("invoices")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "PUT issue", actions[0].String())
	assert.False(t, actions[0].BodyRequired)
}
