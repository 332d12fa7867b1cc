// Package docs serves the OpenAPI description of the HTTP API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "Session": {"type": "apiKey", "name": "X-Session-ID", "in": "header"}
    },
    "paths": {
        "/sessions": {"post": {"summary": "Open a session", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}},
        "/sessions/{sid}": {"delete": {"summary": "Close a session", "parameters": [{"type": "string", "name": "sid", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "401": {"description": "Unauthorized"}}}},
        "/events": {"get": {"summary": "List events", "security": [{"Session": []}], "responses": {"200": {"description": "OK"}}}, "post": {"summary": "Create event", "security": [{"Session": []}], "responses": {"201": {"description": "Created"}, "502": {"description": "Bad Gateway"}}}},
        "/events/{id}": {"get": {"summary": "Get event", "security": [{"Session": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/meetups": {"get": {"summary": "List meetups", "security": [{"Session": []}], "responses": {"200": {"description": "OK"}}}},
        "/items": {"get": {"summary": "List events and meetups as one collection", "security": [{"Session": []}], "parameters": [{"type": "string", "name": "type", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/items/{id}": {"get": {"summary": "Get an event or meetup", "security": [{"Session": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/favorites/toggle": {"post": {"summary": "Toggle a favorite", "security": [{"Session": []}], "responses": {"200": {"description": "OK"}, "429": {"description": "Too Many Requests"}, "502": {"description": "Bad Gateway"}}}},
        "/favorites": {"get": {"summary": "List favorites of the session user", "security": [{"Session": []}], "responses": {"200": {"description": "OK"}}}},
        "/booking": {"get": {"summary": "Current booking draft", "security": [{"Session": []}], "responses": {"200": {"description": "OK"}}}, "delete": {"summary": "Cancel the booking draft", "security": [{"Session": []}], "responses": {"204": {"description": "No Content"}}}},
        "/booking/seats": {"post": {"summary": "Select a seat", "security": [{"Session": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/booking/checkout": {"post": {"summary": "Submit the booking", "security": [{"Session": []}], "parameters": [{"type": "string", "name": "Idempotency-Key", "in": "header"}], "responses": {"201": {"description": "Created"}, "422": {"description": "Unprocessable Entity"}}}},
        "/meetups/wizard": {"post": {"summary": "Fill the current wizard step and advance", "security": [{"Session": []}], "responses": {"200": {"description": "OK"}, "201": {"description": "Created"}, "422": {"description": "Unprocessable Entity"}}}},
        "/notifications": {"get": {"summary": "Drain pending notices of the session user", "security": [{"Session": []}], "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Meetly API",
	Description:      "Session-scoped access to events, meetups, favorites and bookings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
