// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Core"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/api/v1/users/{id}/recommendations": {
            "get": {
                "description": "Blended recommendations for a user, or for an anonymous caller with id \"guest\"",
                "produces": ["application/json"],
                "tags": ["Recommendations"],
                "summary": "Recommend users",
                "parameters": [
                    {"type": "string", "description": "User ID or guest", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "all, similar, skill, complement or activity", "name": "strategy", "in": "query"},
                    {"type": "string", "description": "Comma-separated preferred tags", "name": "tags", "in": "query"},
                    {"type": "integer", "description": "Minimum score x100 (0-100)", "name": "min_similarity", "in": "query"},
                    {"type": "integer", "description": "1-based page", "name": "page_num", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/api/v1/users/{id}/recommendations/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Recommendations"],
                "summary": "Refresh cached recommendations",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Strategy to clear; all strategies when empty", "name": "strategy", "in": "query"},
                    {"type": "string", "description": "Comma-separated tags; every tag variant when empty", "name": "tags", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/api/v1/feedback": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Recommendations"],
                "summary": "Record feedback",
                "parameters": [
                    {"description": "Feedback", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.feedbackRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/api/v1/tag-categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Recommendations"],
                "summary": "List tag categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/precompute/full": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Trigger full precompute",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/precompute/incremental": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Trigger incremental precompute",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/precompute/users/{id}/{kind}": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Recompute one user",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "similarity or complement", "name": "kind", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/precompute/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Precompute status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/jobs/{name}": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Trigger a job",
                "parameters": [
                    {"type": "string", "description": "Job name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/users/{id}/tags-updated": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Announce a tag change",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"description": "New tags", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/api.tagsUpdatedRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/recommendations/cache": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Clear the result cache",
                "parameters": [
                    {"type": "integer", "description": "Only this user's pages", "name": "user_id", "in": "query"},
                    {"type": "string", "description": "Only this strategy (with user_id)", "name": "strategy", "in": "query"},
                    {"type": "string", "description": "Only this tag variant (with user_id)", "name": "tags", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.tagsUpdatedRequest": {
            "type": "object",
            "properties": {
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "api.APIMeta": {
            "type": "object",
            "properties": {
                "duration_ms": {"type": "integer"},
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/api.APIError"},
                "meta": {"$ref": "#/definitions/api.APIMeta"},
                "success": {"type": "boolean"}
            }
        },
        "api.feedbackRequest": {
            "type": "object",
            "required": ["feedback", "recommended_user_id", "user_id"],
            "properties": {
                "feedback": {"type": "integer", "enum": [-1, 1]},
                "match_type": {"type": "string"},
                "recommended_user_id": {"type": "integer"},
                "score": {"type": "number"},
                "strategy": {"type": "string"},
                "user_id": {"type": "integer"}
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
	Title:            "Affinity API",
	Description:      "User matching recommendations, feedback and precompute administration.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
