// Package service is a base for typed clients of remote HTTP controllers.
//
// A client is built from a ServiceOption (base address, controller path and
// default content type) and a zerolog.Logger that receives diagnostics:
//
//	client, err := service.New(service.StaticOption{
//		BaseAddress: "https://orders.internal/api/",
//		Controller:  "orders",
//	}, logger)
//
//	order, err := service.Post[Order](ctx, client, "create",
//		service.WithBody(newOrder),
//		service.WithParam("dryRun", true))
//
// Calls are addressed as "{controller}/{action}?name=value&..." relative to
// the base address. Query values are not escaped.
//
// Post classifies responses into three buckets: 200 is decoded, 400 is logged
// with the request body and response text and returned as a *TransferError,
// anything else is returned as a *TransferError. Get decodes whatever comes
// back regardless of status. In both, a body that is empty, null or not
// decodable yields the zero value and an error-level log entry, not an error.
//
// Download and DownloadFile return the live response body for streaming;
// UploadFile streams a single multipart part without buffering the source.
//
// Base addresses may use the lambda:// scheme when the default transport
// from pkg/http is used.
package service
