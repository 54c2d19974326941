package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "RSAF Qualification API",
        "description": "Training qualification enrollment with Trainer, Examiner and Commander approval.",
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
        {"name": "Session", "description": "Role selection and session tokens"},
        {"name": "Qualifications", "description": "Qualification catalog"},
        {"name": "Dashboard", "description": "Summary counters"},
        {"name": "Enrollments", "description": "Trainee enrollments"},
        {"name": "Approvals", "description": "Trainer, Examiner and Commander decisions"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
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
                    "503": {"description": "Enrollment store unavailable"}
                }
            }
        },
        "/api/v1/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Resolve the persisted role selection",
                "responses": {
                    "200": {"description": "Identity and token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Session"],
                "summary": "Switch the acting role",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Identity and token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown role", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Session"],
                "summary": "Clear the persisted role selection",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/api/v1/qualifications": {
            "get": {
                "tags": ["Qualifications"],
                "summary": "Browse qualifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "category", "type": "string", "enum": ["Aircraft", "Maintenance", "Operations", "Safety"]}
                ],
                "responses": {
                    "200": {"description": "Catalog entries with enrollment flag", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown category", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/qualifications/{id}": {
            "get": {
                "tags": ["Qualifications"],
                "summary": "Qualification details",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Qualification", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Counters", "schema": {"$ref": "#/definitions/SummaryResponse"}}
                }
            }
        },
        "/api/v1/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll in a qualification",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Pending enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Only trainees enroll", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown qualification", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollments/mine": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List the caller's enrollments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Enrollment rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollments/mine/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the caller's enrollments",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/api/v1/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Enrollment details with approval progress",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Detail", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the caller's enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollments/{id}/approve": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Approve the current stage of an enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Updated enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not awaiting the caller's role, or already finalized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Changed concurrently", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollments/{id}/reject": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Reject an enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rejected enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing reason", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not awaiting the caller's role, or already finalized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Changed concurrently", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/approvals/pending": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Enrollments awaiting the caller's decision",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Pending rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Trainees have no approvals", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/approvals/pending/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the caller's pending approvals",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "SessionRequest": {
            "type": "object",
            "required": ["role"],
            "properties": {
                "role": {"type": "string", "enum": ["trainee", "trainer", "examiner", "commander"]}
            }
        },
        "EnrollRequest": {
            "type": "object",
            "required": ["qualification_id"],
            "properties": {
                "qualification_id": {"type": "integer"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "SummaryResponse": {
            "type": "object",
            "properties": {
                "total_qualifications": {"type": "integer"},
                "my_enrollments": {"type": "integer"},
                "pending": {"type": "integer"},
                "completed": {"type": "integer"}
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
