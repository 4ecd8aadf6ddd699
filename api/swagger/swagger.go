package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Notification API",
        "description": "Alert/notification engine and access gate for the school management platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Alerts", "description": "Notification feed and lifecycle actions"},
        {"name": "Alert Types", "description": "Alert type and status reference data"}
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
                    "503": {"description": "Unavailable"}
                }
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List alerts visible to the caller",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "alert_type_id", "in": "query", "type": "string"},
                    {"name": "alert_status_id", "in": "query", "type": "integer"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "entity_type", "in": "query", "type": "string"},
                    {"name": "target_role", "in": "query", "type": "string"},
                    {"name": "priority_level", "in": "query", "type": "integer"},
                    {"name": "from_date", "in": "query", "type": "string"},
                    {"name": "to_date", "in": "query", "type": "string"},
                    {"name": "is_read", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Alert list with unread count"},
                    "400": {"description": "Malformed filter"}
                }
            },
            "post": {
                "tags": ["Alerts"],
                "summary": "Create an alert (admin only)",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/alerts/unread-count": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Unread alert count for the caller",
                "responses": {
                    "200": {"description": "Count"}
                }
            }
        },
        "/alerts/{id}/read": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Mark an alert read",
                "responses": {
                    "200": {"description": "Marked read"},
                    "404": {"description": "Not found"},
                    "409": {"description": "Terminal state or concurrent modification"}
                }
            }
        },
        "/alerts/{id}/acknowledge": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Acknowledge a read alert",
                "responses": {
                    "200": {"description": "Acknowledged"},
                    "409": {"description": "Terminal state"},
                    "412": {"description": "Precondition failed"}
                }
            }
        },
        "/alerts/{id}/dismiss": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Dismiss an alert",
                "responses": {
                    "200": {"description": "Dismissed"},
                    "409": {"description": "Terminal state"}
                }
            }
        },
        "/alerts/read-all": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Mark every visible unread alert read",
                "responses": {
                    "200": {"description": "Bulk result with count"}
                }
            }
        },
        "/alert-types": {
            "get": {
                "tags": ["Alert Types"],
                "summary": "List alert types",
                "responses": {
                    "200": {"description": "Alert types"}
                }
            },
            "post": {
                "tags": ["Alert Types"],
                "summary": "Create an alert type (admin only)",
                "responses": {
                    "201": {"description": "Created"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/alert-statuses": {
            "get": {
                "tags": ["Alert Types"],
                "summary": "List lifecycle statuses",
                "responses": {
                    "200": {"description": "Statuses"}
                }
            }
        }
    },
    "definitions": {
        "Alert": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "alert_type_id": {"type": "string"},
                "alert_status_id": {"type": "integer"},
                "title": {"type": "string"},
                "message": {"type": "string"},
                "entity_type": {"type": "string"},
                "entity_id": {"type": "string"},
                "entity_name": {"type": "string"},
                "target_role": {"type": "string"},
                "target_user_id": {"type": "string"},
                "priority_level": {"type": "integer"},
                "metadata": {"type": "object"},
                "read_at": {"type": "string"},
                "acknowledged_at": {"type": "string"},
                "expires_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "AlertListResponse": {
            "type": "object",
            "properties": {
                "alerts": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Alert"}
                },
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "unread_count": {"type": "integer"}
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
                "pagination": {"type": "object"},
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
