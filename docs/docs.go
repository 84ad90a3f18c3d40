// Package docs registers the OpenAPI document served at /swagger/*any.
//
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/webhook/mentions": {
            "post": {
                "description": "Runs the reply pipeline for a cast.created event. Duplicate deliveries are acknowledged with ignored_duplicate.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Ingest a cast event",
                "operationId": "receiveWebhook",
                "parameters": [
                    {"type": "string", "description": "hex HMAC-SHA512 of the body", "name": "X-Neynar-Signature", "in": "header"},
                    {"description": "Webhook event", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.WebhookEvent"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.WebhookAck"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/handlers.WebhookError"}},
                    "401": {"description": "Bad signature", "schema": {"$ref": "#/definitions/handlers.WebhookError"}},
                    "500": {"description": "Upstream or internal failure", "schema": {"$ref": "#/definitions/handlers.WebhookError"}}
                }
            }
        },
        "/api/v1/interactions": {
            "get": {
                "description": "Returns recorded interactions, newest first, optionally within one room. Supports weak ETag via If-None-Match.",
                "produces": ["application/json"],
                "tags": ["Interactions"],
                "summary": "List interactions (paginated)",
                "operationId": "listInteractions",
                "parameters": [
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Thread hash", "name": "room_id", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListInteractionsResponse"}},
                    "304": {"description": "Not Modified"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/interactions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Interactions"],
                "summary": "Get an interaction",
                "operationId": "getInteraction",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Interaction"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Interaction not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/interactions/{id}/replies": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Interactions"],
                "summary": "List the replies published for an interaction",
                "operationId": "listReplies",
                "parameters": [
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListRepliesResponse"}},
                    "304": {"description": "Not Modified"},
                    "404": {"description": "Interaction not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.WebhookEvent": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "example": "cast.created"},
                "created_at": {"type": "integer"},
                "cast": {"type": "object"}
            }
        },
        "domain.Interaction": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "room_id": {"type": "string"},
                "author_id": {"type": "string"},
                "cast_hash": {"type": "string"},
                "kind": {"type": "string", "enum": ["mention", "reply"]},
                "text": {"type": "string"},
                "metadata": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.ReplyMemory": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "interaction_id": {"type": "string"},
                "room_id": {"type": "string"},
                "parent_hash": {"type": "string"},
                "reply_hash": {"type": "string"},
                "text": {"type": "string"},
                "action": {"type": "string"},
                "path": {"type": "string", "enum": ["action", "default"]},
                "created_at": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string"}
            }
        },
        "handlers.WebhookAck": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "handlers.WebhookError": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListInteractionsResponse": {
            "type": "object",
            "properties": {
                "interactions": {"type": "array", "items": {"$ref": "#/definitions/domain.Interaction"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ListRepliesResponse": {
            "type": "object",
            "properties": {
                "replies": {"type": "array", "items": {"$ref": "#/definitions/domain.ReplyMemory"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "go-cast-agent API",
	Description:      "Farcaster mention/reply agent: webhook ingestion and operator read API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
