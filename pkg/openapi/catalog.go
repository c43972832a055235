package openapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/pkg/service"
)

// Doer fetches remote documents.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Action is one operation of a service controller.
type Action struct {
	Name         string
	Path         string
	Method       string
	Summary      string
	Description  string
	ContentTypes []string
	BodyRequired bool
	QueryParams  []Param
}

// Param is a query parameter accepted by an action.
type Param struct {
	Name        string
	Required    bool
	Type        string
	Description string
}

// Catalog lists the actions a service exposes, read from its OpenAPI document.
type Catalog struct {
	model *libopenapi.DocumentModel[v3.Document]
	doer  Doer
}

// NewCatalog creates an empty catalog that fetches remote documents through doer.
func NewCatalog(doer Doer) *Catalog {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Catalog{doer: doer}
}

// Load reads a document from a file path, a file:// URI or an http(s)/lambda URL.
func (c *Catalog) Load(ctx context.Context, source string) error {
	parsed, err := url.Parse(source)
	if err != nil || parsed.Scheme == "" || len(parsed.Scheme) == 1 {
		// bare paths, including Windows drive letters
		return c.loadFile(source)
	}

	if parsed.Scheme == "file" {
		filePath := parsed.Path
		if parsed.Host != "" {
			filePath = parsed.Host + parsed.Path
		}
		return c.loadFile(filePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeOpenAPI, "invalid OpenAPI URL").
			WithContext("url", source)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, "fetching OpenAPI document").
			WithContext("url", source)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrorTypeOpenAPI, "unexpected status code: %d", resp.StatusCode).
			WithContext("url", source)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, "reading OpenAPI document").
			WithContext("url", source)
	}
	return c.LoadBytes(data)
}

func (c *Catalog) loadFile(path string) error {
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeOpenAPI, "resolving OpenAPI file path")
		}
		path = abs
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeOpenAPI, "reading OpenAPI file").
			WithContext("path", path)
	}
	return c.LoadBytes(data)
}

// LoadBytes parses a JSON or YAML OpenAPI 3 document.
func (c *Catalog) LoadBytes(data []byte) error {
	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeOpenAPI, "parsing OpenAPI document")
	}

	model, errs := document.BuildV3Model()
	if len(errs) > 0 {
		return errors.Newf(errors.ErrorTypeOpenAPI, "building v3 model: %v", errs)
	}
	if model == nil {
		return errors.New(errors.ErrorTypeOpenAPI, "document is not OpenAPI 3")
	}

	c.model = model
	return nil
}

// Loaded reports whether a document has been loaded.
func (c *Catalog) Loaded() bool {
	return c.model != nil
}

// Info returns the document title block.
func (c *Catalog) Info() *base.Info {
	if c.model == nil {
		return nil
	}
	return c.model.Model.Info
}

// ServerURL returns the first server URL declared by the document.
func (c *Catalog) ServerURL() string {
	if c.model == nil || len(c.model.Model.Servers) == 0 {
		return ""
	}
	return c.model.Model.Servers[0].URL
}

// Actions returns the operations under /{controller}/, sorted by name then
// method. An empty controller lists every operation by its full path.
func (c *Catalog) Actions(controller string) ([]Action, error) {
	if c.model == nil {
		return nil, errors.New(errors.ErrorTypeOpenAPI, "no OpenAPI document loaded")
	}

	var actions []Action
	if c.model.Model.Paths == nil || c.model.Model.Paths.PathItems == nil {
		return actions, nil
	}

	prefix := "/"
	if controller = strings.Trim(controller, "/"); controller != "" {
		prefix = "/" + controller + "/"
	}

	for pathPattern, pathItem := range c.model.Model.Paths.PathItems.FromOldest() {
		if !strings.HasPrefix(pathPattern, prefix) {
			continue
		}
		name := strings.TrimPrefix(pathPattern, prefix)
		if name == "" {
			continue
		}

		for method, op := range getOperations(pathItem) {
			action := Action{
				Name:        name,
				Path:        pathPattern,
				Method:      strings.ToUpper(method),
				Summary:     op.Summary,
				Description: op.Description,
				QueryParams: queryParams(pathItem.Parameters, op.Parameters),
			}
			if body := op.RequestBody; body != nil {
				action.BodyRequired = body.Required != nil && *body.Required
				if body.Content != nil {
					for contentType := range body.Content.FromOldest() {
						action.ContentTypes = append(action.ContentTypes, contentType)
					}
				}
			}
			actions = append(actions, action)
		}
	}

	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Name != actions[j].Name {
			return actions[i].Name < actions[j].Name
		}
		return methodOrder(actions[i].Method) < methodOrder(actions[j].Method)
	})

	return actions, nil
}

// Find returns the action with the given name and method.
func (c *Catalog) Find(controller, name, method string) (Action, bool) {
	actions, err := c.Actions(controller)
	if err != nil {
		return Action{}, false
	}
	for _, a := range actions {
		if a.Name == name && strings.EqualFold(a.Method, method) {
			return a, true
		}
	}
	return Action{}, false
}

// ActionNames returns the distinct action names starting with prefix for
// the given method ("" or "*" for any).
func (c *Catalog) ActionNames(controller, method, prefix string) []string {
	actions, err := c.Actions(controller)
	if err != nil {
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, a := range actions {
		if !matchesMethod(a.Method, method) || !strings.HasPrefix(a.Name, prefix) || seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		names = append(names, a.Name)
	}
	return names
}

// ContentTypeFor maps the request media types of a to a content type hint.
// JSON wins over form when both are offered.
func ContentTypeFor(a Action) service.ContentType {
	hint := service.Unknown
	for _, ct := range a.ContentTypes {
		mediaType, _, _ := strings.Cut(ct, ";")
		switch strings.TrimSpace(strings.ToLower(mediaType)) {
		case service.MIMEApplicationJSON:
			return service.ApplicationJSON
		case service.MIMEFormURLEncoded:
			hint = service.FormURLEncoded
		}
	}
	return hint
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s", a.Method, a.Name)
}

func matchesMethod(method, filter string) bool {
	if filter == "" || filter == "*" || strings.EqualFold(filter, "ANY") {
		return true
	}
	for _, m := range strings.Split(filter, ",") {
		if strings.EqualFold(method, strings.TrimSpace(m)) {
			return true
		}
	}
	return false
}

func getOperations(pathItem *v3.PathItem) map[string]*v3.Operation {
	ops := make(map[string]*v3.Operation)

	if pathItem.Get != nil {
		ops["get"] = pathItem.Get
	}
	if pathItem.Post != nil {
		ops["post"] = pathItem.Post
	}
	if pathItem.Put != nil {
		ops["put"] = pathItem.Put
	}
	if pathItem.Delete != nil {
		ops["delete"] = pathItem.Delete
	}
	if pathItem.Patch != nil {
		ops["patch"] = pathItem.Patch
	}

	return ops
}

// queryParams merges path-level and operation-level query parameters,
// operation entries overriding by name.
func queryParams(pathParams, opParams []*v3.Parameter) []Param {
	byName := make(map[string]Param)
	for _, group := range [][]*v3.Parameter{pathParams, opParams} {
		for _, p := range group {
			if p == nil || p.In != "query" || p.Name == "" {
				continue
			}
			param := Param{
				Name:        p.Name,
				Required:    p.Required != nil && *p.Required,
				Description: p.Description,
			}
			if p.Schema != nil {
				if schema := p.Schema.Schema(); schema != nil && len(schema.Type) > 0 {
					param.Type = schema.Type[0]
				}
			}
			byName[p.Name] = param
		}
	}

	params := make([]Param, 0, len(byName))
	for _, p := range byName {
		params = append(params, p)
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}

func methodOrder(method string) int {
	order := map[string]int{
		"GET":    0,
		"POST":   1,
		"PUT":    2,
		"PATCH":  3,
		"DELETE": 4,
	}
	if v, ok := order[method]; ok {
		return v
	}
	return 999
}
