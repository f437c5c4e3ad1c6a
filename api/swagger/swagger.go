package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Records API",
        "description": "Multi-tenant student transfers, academic record snapshots and enrollment timelines",
        "version": "0.2.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Transfers", "description": "Cross-tenant student transfer workflow"},
        {"name": "Snapshots", "description": "Versioned, hashed academic record snapshots"},
        {"name": "Enrollments", "description": "Append-only enrollment event timeline"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check against Postgres and Redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/api/v1/transfers": {
            "get": {
                "tags": ["Transfers"],
                "summary": "List transfers involving the acting tenant",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "direction", "in": "query", "type": "string", "enum": ["incoming", "outgoing", "all"]},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Transfers"],
                "summary": "Request a student transfer to another tenant",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTransferRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Student already has a pending transfer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/transfers/{id}": {
            "get": {
                "tags": ["Transfers"],
                "summary": "Get transfer detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Transfers"],
                "summary": "Delete a transfer that never completed (source tenant)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Completed transfers cannot be deleted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/transfers/{id}/approve": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Approve a requested transfer (destination tenant)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/TransferDecisionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/transfers/{id}/reject": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Reject a requested transfer (destination tenant)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/TransferDecisionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/transfers/{id}/cancel": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Cancel a pending transfer (either tenant)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/TransferDecisionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/transfers/{id}/complete": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Complete an approved transfer (destination tenant)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CompleteTransferRequest"}}
                ],
                "responses": {"200": {"description": "OK, meta.warnings lists best-effort failures", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/snapshots": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "List snapshots of the acting tenant",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["active", "superseded", "revoked"]},
                    {"name": "isFinal", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Snapshots"],
                "summary": "Generate a draft academic record snapshot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateSnapshotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version race lost twice", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/snapshots/{id}": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Get snapshot detail including payload",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/snapshots/{id}/finalize": {
            "post": {
                "tags": ["Snapshots"],
                "summary": "Seal a draft snapshot and supersede its siblings",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/FinalizeSnapshotRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/snapshots/{id}/revoke": {
            "post": {
                "tags": ["Snapshots"],
                "summary": "Revoke a snapshot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RevokeSnapshotRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/snapshots/{id}/verify": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Recompute and compare the payload hash",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/snapshots/{id}/export": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Download a snapshot transcript",
                "produces": ["application/pdf", "text/csv"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]}
                ],
                "responses": {"200": {"description": "Transcript file", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/enrollments/{id}/events": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List the events of an enrollment, newest first",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "CreateTransferRequest": {
            "type": "object",
            "required": ["studentId", "toTenantId"],
            "properties": {
                "studentId": {"type": "string"},
                "fromSchoolId": {"type": "string"},
                "toTenantId": {"type": "string"},
                "toSchoolId": {"type": "string"},
                "toAcademicYearId": {"type": "string"},
                "toClassGroupId": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "TransferDecisionRequest": {
            "type": "object",
            "properties": {"note": {"type": "string"}}
        },
        "CompleteTransferRequest": {
            "type": "object",
            "properties": {
                "toAcademicYearId": {"type": "string"},
                "toClassGroupId": {"type": "string"}
            }
        },
        "GenerateSnapshotRequest": {
            "type": "object",
            "required": ["studentId", "kind"],
            "properties": {
                "studentId": {"type": "string"},
                "kind": {"type": "string", "enum": ["academic_year", "as_of", "full_history", "custom"]},
                "schoolId": {"type": "string"},
                "academicYearId": {"type": "string"},
                "asOf": {"type": "string", "format": "date-time"},
                "includeAssessments": {"type": "boolean"},
                "includeAttendance": {"type": "boolean"},
                "includeResults": {"type": "boolean"},
                "sourceType": {"type": "string", "enum": ["manual", "system", "year_close"]},
                "notes": {"type": "string"}
            }
        },
        "FinalizeSnapshotRequest": {
            "type": "object",
            "properties": {"notes": {"type": "string"}}
        },
        "RevokeSnapshotRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {"reason": {"type": "string"}}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
