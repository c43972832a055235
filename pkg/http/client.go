package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/brendan.keane/svcbase/internal/errors"
)

// LambdaInvoker is the part of the Lambda API the client uses.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Client wraps http.Client and routes lambda:// URLs to Lambda Invoke.
// AWS configuration is loaded on the first lambda call only.
type Client struct {
	*http.Client

	once      sync.Once
	invoker   LambdaInvoker
	invokeErr error
}

// NewClient returns a client over http.DefaultClient.
func NewClient() *Client {
	return &Client{Client: http.DefaultClient}
}

// NewClientWithHTTPClient returns a client over httpClient.
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Client: httpClient}
}

// NewClientWithInvoker returns a client that sends lambda:// requests to invoker.
func NewClientWithInvoker(httpClient *http.Client, invoker LambdaInvoker) *Client {
	c := NewClientWithHTTPClient(httpClient)
	c.once.Do(func() { c.invoker = invoker })
	return c
}

// Do performs the request, routing to Lambda or HTTP based on the URL scheme.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "lambda" {
		return c.doLambda(req)
	}
	return c.Client.Do(req)
}

func (c *Client) lambdaInvoker(ctx context.Context) (LambdaInvoker, error) {
	c.once.Do(func() {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			c.invokeErr = errors.Wrap(err, errors.ErrorTypeConfig, "loading AWS config").
				WithContext("config_type", "aws")
			return
		}
		c.invoker = lambda.NewFromConfig(cfg)
	})
	return c.invoker, c.invokeErr
}

func (c *Client) doLambda(req *http.Request) (*http.Response, error) {
	functionName := req.URL.Host
	if functionName == "" {
		return nil, errors.New(errors.ErrorTypeNetwork, "lambda URL missing function name").
			WithContext("url", req.URL.String())
	}

	ctx := req.Context()
	invoker, err := c.lambdaInvoker(ctx)
	if err != nil {
		return nil, err
	}

	event, err := httpRequestToLambdaEvent(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncoding, "converting request to Lambda event")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncoding, "marshaling Lambda event")
	}

	output, err := invoker.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "invoking Lambda function").
			WithContext("function", functionName).
			WithContext("url", req.URL.String())
	}
	if output.FunctionError != nil {
		return nil, errors.Newf(errors.ErrorTypeNetwork, "lambda function error: %s: %s", *output.FunctionError, string(output.Payload)).
			WithContext("function", functionName).
			WithContext("url", req.URL.String())
	}

	resp, err := lambdaResponseToHTTP(output.Payload)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// httpRequestToLambdaEvent converts an http.Request to an API Gateway v2 HTTP proxy event.
// Bodies that are not valid UTF-8 text are sent base64 encoded.
func httpRequestToLambdaEvent(req *http.Request) (*events.APIGatewayV2HTTPRequest, error) {
	var body string
	var isBase64 bool

	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "reading request body")
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(data))

		if isText(req.Header.Get("Content-Type")) {
			body = string(data)
		} else {
			body = base64.StdEncoding.EncodeToString(data)
			isBase64 = true
		}
	}

	headers := make(map[string]string, len(req.Header)+1)
	for key, values := range req.Header {
		headers[strings.ToLower(key)] = strings.Join(values, ",")
	}
	if req.Host != "" {
		headers["host"] = req.Host
	}

	queryParams := make(map[string]string)
	for key, values := range req.URL.Query() {
		queryParams[key] = strings.Join(values, ",")
	}

	now := time.Now()
	routeKey := fmt.Sprintf("%s %s", req.Method, req.URL.Path)

	return &events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              routeKey,
		RawPath:               req.URL.Path,
		RawQueryString:        req.URL.RawQuery,
		Headers:               headers,
		QueryStringParameters: queryParams,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			APIID:        "svcbase",
			DomainName:   req.URL.Host,
			DomainPrefix: req.URL.Host,
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    req.Method,
				Path:      req.URL.Path,
				Protocol:  "HTTP/1.1",
				SourceIP:  "127.0.0.1",
				UserAgent: req.UserAgent(),
			},
			RequestID: fmt.Sprintf("svcbase-%d", now.UnixNano()),
			RouteKey:  routeKey,
			Stage:     "$default",
			Time:      now.Format("02/Jan/2006:15:04:05 -0700"),
			TimeEpoch: now.UnixMilli(),
		},
		Body:            body,
		IsBase64Encoded: isBase64,
	}, nil
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "xml") ||
		strings.HasPrefix(ct, "application/x-www-form-urlencoded")
}

// lambdaResponseToHTTP converts an API Gateway v2 proxy response to an http.Response.
func lambdaResponseToHTTP(payload []byte) (*http.Response, error) {
	var lambdaResp events.APIGatewayV2HTTPResponse
	if err := json.Unmarshal(payload, &lambdaResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncoding, "parsing Lambda response")
	}

	status := lambdaResp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	resp := &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     make(http.Header),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
	}

	for key, value := range lambdaResp.Headers {
		resp.Header.Set(key, value)
	}
	for key, values := range lambdaResp.MultiValueHeaders {
		for _, v := range values {
			resp.Header.Add(key, v)
		}
	}
	for _, cookie := range lambdaResp.Cookies {
		resp.Header.Add("Set-Cookie", cookie)
	}

	bodyBytes := []byte(lambdaResp.Body)
	if lambdaResp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(lambdaResp.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEncoding, "decoding base64 Lambda body")
		}
		bodyBytes = decoded
	}
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	resp.ContentLength = int64(len(bodyBytes))

	return resp, nil
}
