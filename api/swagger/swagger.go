package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ShiftPay API",
        "description": "Policy-driven payroll adjustment ledger for staff shift operations",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Rules", "description": "Policy rule authoring and resolution"},
        {"name": "Adjustments", "description": "Payroll adjustment ledger"},
        {"name": "Payroll", "description": "Payroll runs and statements"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain a token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/rules": {
            "get": {
                "tags": ["Rules"],
                "summary": "List policy rules",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "owner_id", "in": "query", "type": "integer"},
                    {"name": "scope", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rules"],
                "summary": "Author a new rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/rules/{id}": {
            "get": {
                "tags": ["Rules"],
                "summary": "Fetch one rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Rules"],
                "summary": "Update a rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/rules/{id}/active": {
            "patch": {
                "tags": ["Rules"],
                "summary": "Enable or disable a rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No content"}
                }
            }
        },
        "/api/v1/rules/resolve": {
            "post": {
                "tags": ["Rules"],
                "summary": "Resolve actions for a business event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/adjustments": {
            "get": {
                "tags": ["Adjustments"],
                "summary": "List adjustments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "employee_id", "in": "query", "type": "integer"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "is_applied", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Adjustments"],
                "summary": "Record a manual adjustment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateManualAdjustmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid adjustment type"}
                }
            }
        },
        "/api/v1/adjustments/apply": {
            "post": {
                "tags": ["Adjustments"],
                "summary": "Apply adjustments to a payroll entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyAdjustmentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Storage conflict, retry with the same id set"}
                }
            }
        },
        "/api/v1/adjustments/events": {
            "post": {
                "tags": ["Adjustments"],
                "summary": "Resolve a business event and record the resulting adjustments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/adjustments/unapplied": {
            "get": {
                "tags": ["Adjustments"],
                "summary": "List unapplied adjustments for a pay period",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "employee_id", "in": "query", "required": true, "type": "integer"},
                    {"name": "period_start", "in": "query", "required": true, "type": "string"},
                    {"name": "period_end", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/adjustments/{id}": {
            "get": {
                "tags": ["Adjustments"],
                "summary": "Fetch one adjustment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Adjustments"],
                "summary": "Edit an adjustment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditAdjustmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already finalized"}
                }
            }
        },
        "/api/v1/payroll/runs": {
            "get": {
                "tags": ["Payroll"],
                "summary": "List payroll entries for an employee",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "employee_id", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payroll"],
                "summary": "Run payroll for one employee over a period",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RunPayrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/payroll/runs/{id}": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Fetch one payroll entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/payroll/runs/{id}/statement": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Download a payroll statement",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Statement file"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "SaveRuleRequest": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "owner_id": {"type": "integer"},
                "scope": {"type": "string", "enum": ["late", "cancellation", "task", "incident"]},
                "priority": {"type": "integer"},
                "is_active": {"type": "boolean"},
                "condition": {"type": "object"},
                "action": {"$ref": "#/definitions/RuleAction"}
            },
            "required": ["code", "scope", "action"]
        },
        "RuleAction": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["fine", "bonus"]},
                "amount": {"type": "string"},
                "amount_per_minute": {"type": "string"},
                "label": {"type": "string"},
                "code": {"type": "string"}
            },
            "required": ["kind"]
        },
        "ResolveRequest": {
            "type": "object",
            "properties": {
                "owner_id": {"type": "integer"},
                "scope": {"type": "string"},
                "context": {"type": "object"}
            },
            "required": ["owner_id", "scope"]
        },
        "CreateManualAdjustmentRequest": {
            "type": "object",
            "properties": {
                "employee_id": {"type": "integer"},
                "shift_id": {"type": "integer"},
                "object_id": {"type": "integer"},
                "adjustment_type": {"type": "string", "enum": ["manual_bonus", "manual_deduction"]},
                "amount": {"type": "string"},
                "description": {"type": "string"}
            },
            "required": ["employee_id", "adjustment_type", "amount"]
        },
        "ApplyAdjustmentsRequest": {
            "type": "object",
            "properties": {
                "adjustment_ids": {"type": "array", "items": {"type": "integer"}},
                "payroll_entry_id": {"type": "integer"}
            },
            "required": ["adjustment_ids", "payroll_entry_id"]
        },
        "RecordEventRequest": {
            "type": "object",
            "properties": {
                "owner_id": {"type": "integer"},
                "employee_id": {"type": "integer"},
                "scope": {"type": "string", "enum": ["late", "cancellation", "task", "incident"]},
                "shift_id": {"type": "integer"},
                "object_id": {"type": "integer"},
                "context": {"type": "object"}
            },
            "required": ["owner_id", "employee_id", "scope"]
        },
        "EditAdjustmentRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "RunPayrollRequest": {
            "type": "object",
            "properties": {
                "employee_id": {"type": "integer"},
                "period_start": {"type": "string", "format": "date-time"},
                "period_end": {"type": "string", "format": "date-time"}
            },
            "required": ["employee_id", "period_start", "period_end"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
