package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Klasnova API",
        "description": "Timed exam sessions and result aggregation for multi-tenant schools",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Exams", "description": "Exam lifecycle, questions and invigilators"},
        {"name": "Submissions", "description": "Timed student attempts"},
        {"name": "Results", "description": "Result aggregation, grading and exports"},
        {"name": "Enrollment", "description": "OCR-based enrollment intake"},
        {"name": "Metrics", "description": "Operational metrics"}
    ],
    "paths": {
        "/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List exams",
                "parameters": [
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["draft", "published", "closed"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Create exam",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExamRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}": {
            "get": {
                "tags": ["Exams"],
                "summary": "Get exam with questions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/questions": {
            "post": {
                "tags": ["Exams"],
                "summary": "Add a question to a draft exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddQuestionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/questions/{questionId}": {
            "delete": {
                "tags": ["Exams"],
                "summary": "Remove a question",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "questionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/exams/{id}/publish": {
            "post": {
                "tags": ["Exams"],
                "summary": "Publish an exam for student attempts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Exam has no questions or is not a draft"}
                }
            }
        },
        "/exams/{id}/unpublish": {
            "post": {
                "tags": ["Exams"],
                "summary": "Revert a published exam to draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Exam already has submissions"}
                }
            }
        },
        "/exams/{id}/invigilators": {
            "post": {
                "tags": ["Exams"],
                "summary": "Add an invigilator",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InvigilatorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/invigilators/{userId}": {
            "delete": {
                "tags": ["Exams"],
                "summary": "Remove an invigilator",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "userId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/exams/{id}/announcements": {
            "post": {
                "tags": ["Exams"],
                "summary": "Broadcast an announcement to active candidates",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnnouncementRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/exams/{id}/end": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Force-finalize every active attempt",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Start a timed attempt",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Attempt already exists"}
                }
            }
        },
        "/exams/{id}/submissions/{submissionId}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Get an attempt with its answers",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/submissions/{submissionId}/pause": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Pause the countdown",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pause budget exhausted or attempt expired"}
                }
            }
        },
        "/exams/{id}/submissions/{submissionId}/resume": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Resume a paused attempt, handing the paused time back",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/submissions/{submissionId}/time": {
            "patch": {
                "tags": ["Submissions"],
                "summary": "Grant or revoke minutes on a running attempt",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdjustTimeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/submissions/{submissionId}/answers": {
            "put": {
                "tags": ["Submissions"],
                "summary": "Save or replace one answer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Attempt paused, expired or finalized"}
                }
            }
        },
        "/exams/{id}/submissions/{submissionId}/finalize": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Finalize the attempt, auto-mark objectives and post the result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/submissions/{submissionId}/answers/{questionId}/score": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Override an answer score after finalization",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "submissionId", "in": "path", "required": true, "type": "string"},
                    {"name": "questionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideScoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results": {
            "post": {
                "tags": ["Results"],
                "summary": "Post one subject score into a student's result document",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubjectScoreUpdate"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/bulk": {
            "post": {
                "tags": ["Results"],
                "summary": "Post a batch of subject scores",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/SubjectScoreUpdate"}}}
                ],
                "responses": {
                    "200": {"description": "Per-item summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/process": {
            "post": {
                "tags": ["Results"],
                "summary": "Compute totals and grades from raw CA and exam entries",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RawResultData"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/validate": {
            "post": {
                "tags": ["Results"],
                "summary": "Validate raw result entries without storing them",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RawResultData"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/students/{id}": {
            "get": {
                "tags": ["Results"],
                "summary": "Get one student's result for a session and term",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "session", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/students/{id}/pdf": {
            "get": {
                "tags": ["Results"],
                "summary": "Download one student's result sheet as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "session", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/results/summary": {
            "get": {
                "tags": ["Results"],
                "summary": "Class-level result aggregation",
                "parameters": [
                    {"name": "classroomId", "in": "query", "required": true, "type": "string"},
                    {"name": "session", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/summary/pdf": {
            "get": {
                "tags": ["Results"],
                "summary": "Download the class summary as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "classroomId", "in": "query", "required": true, "type": "string"},
                    {"name": "session", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/results/grade-scale": {
            "get": {
                "tags": ["Results"],
                "summary": "Current grade band configuration",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Results"],
                "summary": "Replace the grade band configuration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/GradeBand"}}}
                ],
                "responses": {
                    "200": {"description": "Effective bands after the update", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment/ocr": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Queue a scanned class list for OCR enrollment",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "classroom_id", "in": "formData", "required": true, "type": "string"},
                    {"name": "image", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/snapshot": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Aggregated counters for dashboards",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateExamRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "classroom_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "title": {"type": "string"},
                "academic_session": {"type": "string", "example": "2025/2026"},
                "term": {"type": "integer", "minimum": 1, "maximum": 3},
                "duration_minutes": {"type": "integer", "minimum": 1},
                "max_pauses": {"type": "integer", "minimum": 0}
            },
            "required": ["classroom_id", "subject_id", "title", "academic_session", "term", "duration_minutes"]
        },
        "AddQuestionRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["objective", "theory"]},
                "prompt": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "correct_option": {"type": "integer"},
                "marks": {"type": "number"}
            },
            "required": ["type", "prompt", "marks"]
        },
        "InvigilatorRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"}
            },
            "required": ["user_id"]
        },
        "AnnouncementRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "message": {"type": "string"}
            },
            "required": ["title", "message"]
        },
        "AdjustTimeRequest": {
            "type": "object",
            "properties": {
                "delta_minutes": {"type": "integer"}
            },
            "required": ["delta_minutes"]
        },
        "SubmitAnswerRequest": {
            "type": "object",
            "properties": {
                "question_id": {"type": "string"},
                "selected_option": {"type": "integer"},
                "answer_text": {"type": "string"}
            },
            "required": ["question_id"]
        },
        "OverrideScoreRequest": {
            "type": "object",
            "properties": {
                "score": {"type": "number"}
            },
            "required": ["score"]
        },
        "SubjectScoreUpdate": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "school_id": {"type": "string"},
                "classroom_id": {"type": "string"},
                "academic_session": {"type": "string", "example": "2025/2026"},
                "term": {"type": "integer", "minimum": 1, "maximum": 3},
                "subject_id": {"type": "string"},
                "exam_score": {"type": "number"},
                "max_exam_score": {"type": "number"},
                "ca_score": {"type": "number"},
                "max_ca_score": {"type": "number"}
            },
            "required": ["student_id", "classroom_id", "academic_session", "term", "subject_id", "max_exam_score"]
        },
        "RawResultData": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "academic_session": {"type": "string"},
                "term": {"type": "integer"},
                "subjects": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/RawSubjectEntry"}
                }
            }
        },
        "RawSubjectEntry": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "string"},
                "ca1": {"type": "number"},
                "ca2": {"type": "number"},
                "exam": {"type": "number"}
            }
        },
        "GradeBand": {
            "type": "object",
            "properties": {
                "min": {"type": "number"},
                "max": {"type": "number"},
                "code": {"type": "string"},
                "label": {"type": "string"}
            }
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
