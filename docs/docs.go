// Package docs holds the OpenAPI document served by gin-swagger. Regenerate
// with `swag init -g cmd/server/main.go` after changing handler annotations.
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
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Parent login",
                "operationId": "login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.Token"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/children/{childId}/check": {
            "post": {
                "tags": ["Child"],
                "summary": "Decide whether a URL may be opened",
                "operationId": "checkUrl",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "boolean", "name": "dry_run", "in": "query"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.CheckResult"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Child not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/children/{childId}/heartbeat": {
            "post": {
                "tags": ["Child"],
                "summary": "Record browsing time",
                "operationId": "recordHeartbeat",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.HeartbeatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.HeartbeatResult"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/children/{childId}/status": {
            "get": {
                "tags": ["Child"],
                "summary": "Today's quota",
                "operationId": "getDailyStatus",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatusResponse"}}
                }
            }
        },
        "/children/{childId}/grant": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Grant extra time",
                "operationId": "grantTime",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.GrantRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.GrantResult"}},
                    "401": {"description": "Authentication failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Not your child", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/children/{childId}/usage/reset": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Reset today's timer",
                "operationId": "resetUsage",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CountResponse"}}
                }
            }
        },
        "/children/{childId}/rules": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "List rules",
                "operationId": "listRules",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.RuleSet"}}
                }
            }
        },
        "/children/{childId}/rules/categories/{category}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Set a category rule",
                "operationId": "upsertCategoryRule",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "string", "name": "category", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.CategoryRuleView"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Remove a category rule",
                "operationId": "deleteCategoryRule",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "string", "name": "category", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Rule not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/children/{childId}/rules/domains/{domain}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Set a domain rule",
                "operationId": "upsertDomainRule",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "string", "name": "domain", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.URLRuleView"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Remove a domain rule",
                "operationId": "deleteDomainRule",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "string", "name": "domain", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/children/{childId}/settings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Time budget and limits",
                "operationId": "getSettings",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"enum": ["seconds", "minutes"], "type": "string", "name": "units", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Settings"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Parent"],
                "summary": "Replace time budget and limits",
                "operationId": "replaceSettings",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"enum": ["seconds", "minutes"], "type": "string", "name": "units", "in": "query"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.Settings"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Settings"}}
                }
            }
        },
        "/children/{childId}/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reports"],
                "summary": "Visit history (paginated)",
                "operationId": "listHistory",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HistoryResponse"}, "headers": {"ETag": {"type": "string"}}},
                    "304": {"description": "Not Modified"}
                }
            }
        },
        "/children/{childId}/alerts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reports"],
                "summary": "Alerts",
                "operationId": "listAlerts",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"type": "boolean", "name": "unsent", "in": "query"},
                    {"maximum": 200, "minimum": 1, "type": "integer", "default": 50, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.AlertSummary"}}
                }
            }
        },
        "/children/{childId}/alerts/mark-sent": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reports"],
                "summary": "Mark alerts delivered",
                "operationId": "markAlertsSent",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "childId", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.MarkSentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CountResponse"}}
                }
            }
        },
        "/admin/catalog/{domain}/reclassify": {
            "post": {
                "tags": ["Admin"],
                "summary": "Re-run domain classification",
                "operationId": "reclassifyDomain",
                "parameters": [
                    {"type": "string", "name": "X-Admin-Token", "in": "header", "required": true},
                    {"type": "string", "name": "domain", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.DomainCatalogEntry"}},
                    "401": {"description": "Invalid admin token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.CheckRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {"url": {"type": "string"}, "dry_run": {"type": "boolean"}}
        },
        "handlers.HeartbeatRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {"url": {"type": "string"}, "seconds": {"type": "number"}}
        },
        "handlers.GrantRequest": {
            "type": "object",
            "required": ["password", "seconds"],
            "properties": {"password": {"type": "string"}, "seconds": {"type": "number"}}
        },
        "handlers.RuleRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["ALLOWED", "BLOCKED", "LIMITED"]},
                "limit_minutes": {"type": "integer"}
            }
        },
        "handlers.MarkSentRequest": {
            "type": "object",
            "required": ["ids"],
            "properties": {"ids": {"type": "array", "items": {"type": "string"}}}
        },
        "handlers.CountResponse": {
            "type": "object",
            "properties": {"count": {"type": "integer"}}
        },
        "handlers.StatusResponse": {
            "type": "object",
            "properties": {
                "is_blocked": {"type": "boolean"},
                "used_seconds": {"type": "integer"},
                "limit_seconds": {"type": "integer"},
                "remaining_seconds": {"type": "integer"},
                "has_limit": {"type": "boolean"},
                "categories": {"type": "array", "items": {"type": "object"}}
            }
        },
        "handlers.HistoryResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "pagination": {"type": "object"}
            }
        },
        "auth.Token": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_at": {"type": "string"},
                "parent_id": {"type": "string"}
            }
        },
        "services.CheckResult": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["ALLOWED", "BLOCK"]},
                "reason": {"type": "string"},
                "source": {"type": "string"},
                "domain": {"type": "string"},
                "category": {"type": "string"},
                "safety_score": {"type": "integer"},
                "dry_run": {"type": "boolean"}
            }
        },
        "services.HeartbeatResult": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["OK", "BLOCK"]},
                "reason": {"type": "string"},
                "remaining_seconds": {"type": "integer"},
                "recorded_seconds": {"type": "integer"},
                "domain": {"type": "string"},
                "category": {"type": "string"},
                "replayed": {"type": "boolean"}
            }
        },
        "services.GrantResult": {"type": "object"},
        "services.RuleSet": {"type": "object"},
        "services.CategoryRuleView": {"type": "object"},
        "services.URLRuleView": {"type": "object"},
        "services.Settings": {"type": "object"},
        "services.AlertSummary": {"type": "object"},
        "domain.DomainCatalogEntry": {"type": "object"}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Parental Control API",
	Description:      "Domain classification, rule cascade, usage accounting and time grants for child browser profiles.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
