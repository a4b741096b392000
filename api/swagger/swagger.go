package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Timetable slot placement, conflict detection and teacher assignment validation.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetable Slots", "description": "Slot placement and conflict checks"},
        {"name": "Timetables", "description": "Timetable lifecycle and export"},
        {"name": "Subject Teachers", "description": "Subject teacher assignments and inheritance"},
        {"name": "Class Teachers", "description": "Primary and co-class teacher assignments"},
        {"name": "Assignment History", "description": "Assignment audit trail and workload"}
    ],
    "paths": {
        "/timetable-slots": {
            "post": {
                "tags": ["Timetable Slots"],
                "summary": "Create or update a slot",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SaveSlotRequest"}}],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot conflicts", "schema": {"$ref": "#/definitions/ConflictBody"}}
                }
            }
        },
        "/timetable-slots/check": {
            "post": {
                "tags": ["Timetable Slots"],
                "summary": "Dry-run conflict check",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SaveSlotRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetable-slots/{id}": {
            "delete": {
                "tags": ["Timetable Slots"],
                "summary": "Delete a slot",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        },
        "/available-teachers": {
            "get": {
                "tags": ["Timetable Slots"],
                "summary": "Teachers free at a day and period",
                "parameters": [
                    {"in": "query", "name": "dayOfWeek", "type": "integer", "required": true},
                    {"in": "query", "name": "periodNumber", "type": "integer", "required": true},
                    {"in": "query", "name": "subjectId", "type": "string"},
                    {"in": "query", "name": "academicYearId", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Timetable with its slot grid",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/{id}/publish": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Publish a draft timetable",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "schema": {"$ref": "#/definitions/PublishTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Subjects without a teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/archive": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Archive a timetable",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Archived", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/{id}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export the grid as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/subject-teachers": {
            "get": {
                "tags": ["Subject Teachers"],
                "summary": "Active assignments of an academic unit",
                "parameters": [
                    {"in": "query", "name": "academicUnitId", "type": "string", "required": true},
                    {"in": "query", "name": "academicYearId", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Subject Teachers"],
                "summary": "Create a subject teacher assignment",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateSubjectTeacherRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejected or confirmation required", "schema": {"$ref": "#/definitions/ConfirmationBody"}},
                    "409": {"description": "Duplicate active assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subject-teachers/validate": {
            "post": {
                "tags": ["Subject Teachers"],
                "summary": "Dry-run assignment validation",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ValidationResult"}}}
            }
        },
        "/subject-teachers/resolve": {
            "get": {
                "tags": ["Subject Teachers"],
                "summary": "Teachers for a subject with parent unit inheritance",
                "parameters": [
                    {"in": "query", "name": "academicUnitId", "type": "string", "required": true},
                    {"in": "query", "name": "subjectId", "type": "string", "required": true},
                    {"in": "query", "name": "academicYearId", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/subject-teachers/{id}": {
            "patch": {
                "tags": ["Subject Teachers"],
                "summary": "Update a subject teacher assignment",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/subject-teachers/{id}/deactivate": {
            "post": {
                "tags": ["Subject Teachers"],
                "summary": "End an assignment",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Deactivated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/subject-teachers/{id}/reactivate": {
            "post": {
                "tags": ["Subject Teachers"],
                "summary": "Revalidate and reactivate an assignment",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Reactivated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/academic-units/{id}/subject-coverage": {
            "get": {
                "tags": ["Subject Teachers"],
                "summary": "Subjects without a resolvable teacher",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "academicYearId", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/class-teachers": {
            "get": {
                "tags": ["Class Teachers"],
                "summary": "Active class teachers of an academic unit",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Class Teachers"],
                "summary": "Assign a primary or co-class teacher",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejected or confirmation required", "schema": {"$ref": "#/definitions/ConfirmationBody"}}
                }
            }
        },
        "/class-teachers/validate": {
            "post": {
                "tags": ["Class Teachers"],
                "summary": "Dry-run class teacher validation",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ValidationResult"}}}
            }
        },
        "/class-teachers/{id}": {
            "patch": {
                "tags": ["Class Teachers"],
                "summary": "Update a class teacher assignment",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/class-teachers/{id}/deactivate": {
            "post": {
                "tags": ["Class Teachers"],
                "summary": "End a class teacher assignment",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Deactivated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/class-teachers/{id}/reactivate": {
            "post": {
                "tags": ["Class Teachers"],
                "summary": "Revalidate and reactivate a class teacher assignment",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Reactivated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/assignment-history/{category}/{id}": {
            "get": {
                "tags": ["Assignment History"],
                "summary": "Audit trail of an assignment",
                "parameters": [
                    {"in": "path", "name": "category", "type": "string", "enum": ["subject-teacher", "class-teacher"], "required": true},
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/teachers/{id}/workload/recompute": {
            "post": {
                "tags": ["Assignment History"],
                "summary": "Recompute a teacher's current periods per week",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "academicYearId", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "SaveSlotRequest": {
            "type": "object",
            "required": ["timetableId", "dayOfWeek", "periodNumber", "slotType"],
            "properties": {
                "slotId": {"type": "string"},
                "timetableId": {"type": "string"},
                "dayOfWeek": {"type": "integer", "minimum": 1, "maximum": 7},
                "periodNumber": {"type": "integer", "minimum": 1},
                "subjectId": {"type": "string"},
                "teacherId": {"type": "string"},
                "room": {"type": "string"},
                "slotType": {"type": "string", "enum": ["REGULAR", "BREAK", "LUNCH", "ASSEMBLY", "FREE"]},
                "notes": {"type": "string"},
                "skipConflictCheck": {"type": "boolean"}
            }
        },
        "PublishTimetableRequest": {
            "type": "object",
            "properties": {"enforceSubjectCoverage": {"type": "boolean"}}
        },
        "CreateSubjectTeacherRequest": {
            "type": "object",
            "required": ["teacherId", "subjectId", "academicUnitId", "academicYearId"],
            "properties": {
                "teacherId": {"type": "string"},
                "subjectId": {"type": "string"},
                "academicUnitId": {"type": "string"},
                "academicYearId": {"type": "string"},
                "periodsPerWeek": {"type": "integer"},
                "isPrimary": {"type": "boolean"},
                "effectiveFrom": {"type": "string", "format": "date-time"},
                "changeReason": {"type": "string"},
                "overrideWarnings": {"type": "boolean"}
            }
        },
        "ValidationResult": {
            "type": "object",
            "properties": {
                "isValid": {"type": "boolean"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ConflictBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "conflicts": {"type": "array", "items": {"type": "object"}}
            }
        },
        "ConfirmationBody": {
            "type": "object",
            "properties": {
                "requiresConfirmation": {"type": "boolean"},
                "warnings": {"type": "array", "items": {"type": "string"}}
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
