// Package testutil provides shared mocks, servers, fixtures and assertions
package testutil

const (
	// OrdersAPISpec describes an "orders" controller and an unrelated "health" path
	OrdersAPISpec = `{
		"openapi": "3.0.0",
		"info": {
			"title": "Orders API",
			"version": "2.1.0",
			"description": "Order management. Internal use only."
		},
		"servers": [{"url": "https://orders.example.com/api/"}],
		"paths": {
			"/orders/create": {
				"post": {
					"summary": "Create an order",
					"requestBody": {
						"required": true,
						"content": {
							"application/json": {"schema": {"type": "object"}}
						}
					},
					"responses": {"200": {"description": "Created"}}
				}
			},
			"/orders/find": {
				"get": {
					"summary": "Find an order by id",
					"parameters": [
						{"name": "id", "in": "query", "required": true, "schema": {"type": "string"}}
					],
					"responses": {"200": {"description": "Found"}}
				}
			},
			"/orders/search": {
				"post": {
					"summary": "Search orders with a form query",
					"requestBody": {
						"content": {
							"application/x-www-form-urlencoded": {"schema": {"type": "object"}}
						}
					},
					"responses": {"200": {"description": "Results"}}
				}
			},
			"/orders/export": {
				"get": {
					"summary": "Export orders as CSV",
					"responses": {"200": {"description": "CSV stream"}}
				}
			},
			"/health": {
				"get": {
					"summary": "Health check",
					"responses": {"200": {"description": "OK"}}
				}
			}
		}
	}`

	// InvalidSpec is not an OpenAPI document
	InvalidSpec = `{"swagger": 1, "paths": "nope"`
)
