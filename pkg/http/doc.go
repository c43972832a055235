// Package http provides the transport used by service clients.
//
// Client behaves like *http.Client for http and https URLs and sends
// lambda://<function-name>/<path>?<query> URLs to AWS Lambda Invoke as API
// Gateway v2 HTTP proxy events:
//
//	client := http.NewClient()
//	resp, err := client.Do(req) // req.URL = lambda://orders-service/orders/find?id=7
//
// The function is expected to answer with an API Gateway v2 proxy response:
//
//	{
//	  "statusCode": 200,
//	  "headers": {"Content-Type": "application/json"},
//	  "body": "{\"id\":7}",
//	  "isBase64Encoded": false
//	}
//
// Signer wraps any Doer with AWS SigV4 signing for API Gateway or Function
// URLs fronted by IAM auth.
package http
