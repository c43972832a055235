package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	svcerrors "github.com/brendan.keane/svcbase/internal/errors"
)

// fakeInvoker records invocations and answers with a canned payload.
type fakeInvoker struct {
	mu      sync.Mutex
	inputs  []*lambda.InvokeInput
	payload []byte
	fnErr   *string
	err     error
}

func (f *fakeInvoker) Invoke(ctx context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &lambda.InvokeOutput{StatusCode: 200, Payload: f.payload, FunctionError: f.fnErr}, nil
}

func (f *fakeInvoker) lastEvent(t *testing.T) events.APIGatewayV2HTTPRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		t.Fatal("lambda was not invoked")
	}
	var event events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(f.inputs[len(f.inputs)-1].Payload, &event); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	return event
}

func proxyResponse(t *testing.T, resp events.APIGatewayV2HTTPResponse) []byte {
	t.Helper()
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHTTPRequestToLambdaEvent(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		url         string
		body        string
		contentType string
		wantBody    string
		wantBase64  bool
		wantQuery   map[string]string
	}{
		{
			name:      "GET with query params",
			method:    http.MethodGet,
			url:       "lambda://orders-service/orders/find?id=7&expand=lines",
			wantQuery: map[string]string{"id": "7", "expand": "lines"},
		},
		{
			name:        "JSON body stays text",
			method:      http.MethodPost,
			url:         "lambda://orders-service/orders/create",
			body:        `{"sku":"A-1"}`,
			contentType: "application/json",
			wantBody:    `{"sku":"A-1"}`,
		},
		{
			name:        "form body stays text",
			method:      http.MethodPost,
			url:         "lambda://orders-service/orders/search",
			body:        "status=open",
			contentType: "application/x-www-form-urlencoded",
			wantBody:    "status=open",
		},
		{
			name:        "binary body is base64",
			method:      http.MethodPost,
			url:         "lambda://orders-service/orders/attach",
			body:        "\x00\x01\x02",
			contentType: "application/octet-stream",
			wantBody:    base64.StdEncoding.EncodeToString([]byte("\x00\x01\x02")),
			wantBase64:  true,
		},
		{
			name:      "repeated query keys are joined",
			method:    http.MethodGet,
			url:       "lambda://orders-service/orders/find?tag=a&tag=b",
			wantQuery: map[string]string{"tag": "a,b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.url, body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			event, err := httpRequestToLambdaEvent(req)
			if err != nil {
				t.Fatalf("httpRequestToLambdaEvent() error = %v", err)
			}

			if event.Version != "2.0" {
				t.Errorf("version = %q", event.Version)
			}
			if event.RawPath != req.URL.Path {
				t.Errorf("raw path = %q, want %q", event.RawPath, req.URL.Path)
			}
			if event.RequestContext.HTTP.Method != tt.method {
				t.Errorf("method = %q, want %q", event.RequestContext.HTTP.Method, tt.method)
			}
			if event.Headers["host"] != "orders-service" {
				t.Errorf("host header = %q", event.Headers["host"])
			}
			if event.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", event.Body, tt.wantBody)
			}
			if event.IsBase64Encoded != tt.wantBase64 {
				t.Errorf("base64 = %v, want %v", event.IsBase64Encoded, tt.wantBase64)
			}
			for k, v := range tt.wantQuery {
				if event.QueryStringParameters[k] != v {
					t.Errorf("query %s = %q, want %q", k, event.QueryStringParameters[k], v)
				}
			}

			if tt.body != "" {
				replay, _ := io.ReadAll(req.Body)
				if string(replay) != tt.body {
					t.Errorf("request body not restored: %q", replay)
				}
			}
		})
	}
}

func TestLambdaResponseToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus int
		wantBody   string
		wantHeader map[string]string
		wantErr    bool
	}{
		{
			name:       "successful response",
			payload:    `{"statusCode":200,"headers":{"Content-Type":"application/json"},"body":"{\"ok\":true}"}`,
			wantStatus: 200,
			wantBody:   `{"ok":true}`,
			wantHeader: map[string]string{"Content-Type": "application/json"},
		},
		{
			name:       "bad request",
			payload:    `{"statusCode":400,"body":"quantity must be positive"}`,
			wantStatus: 400,
			wantBody:   "quantity must be positive",
		},
		{
			name:       "missing status defaults to 200",
			payload:    `{"body":"x"}`,
			wantStatus: 200,
			wantBody:   "x",
		},
		{
			name:       "base64 body is decoded",
			payload:    `{"statusCode":200,"body":"aWQsc3RhdHVzCg==","isBase64Encoded":true}`,
			wantStatus: 200,
			wantBody:   "id,status\n",
		},
		{
			name:       "cookies become Set-Cookie",
			payload:    `{"statusCode":204,"cookies":["a=1"]}`,
			wantStatus: 204,
			wantHeader: map[string]string{"Set-Cookie": "a=1"},
		},
		{name: "malformed JSON", payload: `{"statusCode":`, wantErr: true},
		{name: "invalid base64", payload: `{"statusCode":200,"body":"***","isBase64Encoded":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := lambdaResponseToHTTP([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("lambdaResponseToHTTP() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if resp.ContentLength != int64(len(tt.wantBody)) {
				t.Errorf("content length = %d", resp.ContentLength)
			}
			for k, v := range tt.wantHeader {
				if resp.Header.Get(k) != v {
					t.Errorf("header %s = %q, want %q", k, resp.Header.Get(k), v)
				}
			}
		})
	}
}

func TestClient_RoutesLambdaURLs(t *testing.T) {
	invoker := &fakeInvoker{payload: proxyResponse(t, events.APIGatewayV2HTTPResponse{
		StatusCode: 200,
		Body:       `{"id":7}`,
	})}
	client := NewClientWithInvoker(nil, invoker)

	req, _ := http.NewRequest(http.MethodGet, "lambda://orders-service/orders/find?id=7", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"id":7}` {
		t.Errorf("body = %q", body)
	}
	if resp.Request != req {
		t.Error("response does not reference the request")
	}

	if got := aws.ToString(invoker.inputs[0].FunctionName); got != "orders-service" {
		t.Errorf("function name = %q", got)
	}
	event := invoker.lastEvent(t)
	if event.RawQueryString != "id=7" {
		t.Errorf("raw query = %q", event.RawQueryString)
	}
}

func TestClient_PassesHTTPThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Method+" "+r.URL.Path)
	}))
	defer server.Close()

	invoker := &fakeInvoker{}
	client := NewClientWithInvoker(server.Client(), invoker)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/orders/find", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "GET /orders/find" {
		t.Errorf("body = %q", body)
	}
	if len(invoker.inputs) != 0 {
		t.Error("lambda invoked for an http URL")
	}
}

func TestClient_LambdaFailures(t *testing.T) {
	fnErr := "Unhandled"
	tests := []struct {
		name     string
		url      string
		invoker  *fakeInvoker
		want     string
		wantType svcerrors.ErrorType
	}{
		{"missing function name", "lambda:///orders", &fakeInvoker{}, "missing function name", svcerrors.ErrorTypeNetwork},
		{"invoke error", "lambda://orders-service/x", &fakeInvoker{err: errors.New("throttled")}, "throttled", svcerrors.ErrorTypeNetwork},
		{"function error", "lambda://orders-service/x", &fakeInvoker{fnErr: &fnErr, payload: []byte(`{"errorMessage":"boom"}`)}, "Unhandled", svcerrors.ErrorTypeNetwork},
		{"bad payload", "lambda://orders-service/x", &fakeInvoker{payload: []byte("not json")}, "parsing Lambda response", svcerrors.ErrorTypeEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClientWithInvoker(nil, tt.invoker)
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)

			_, err := client.Do(req)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Do() error = %v, want containing %q", err, tt.want)
			}
			if !svcerrors.IsType(err, tt.wantType) {
				t.Errorf("Do() error type = %s, want %s", svcerrors.GetType(err), tt.wantType)
			}
		})
	}
}

func TestTransport_RoundTrip(t *testing.T) {
	invoker := &fakeInvoker{payload: proxyResponse(t, events.APIGatewayV2HTTPResponse{StatusCode: 201, Body: "made"})}
	transport := &Transport{Client: NewClientWithInvoker(nil, invoker)}
	httpClient := &http.Client{Transport: transport}

	resp, err := httpClient.Post("lambda://orders-service/orders/create", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if event := invoker.lastEvent(t); event.Body != "{}" {
		t.Errorf("event body = %q", event.Body)
	}
}
