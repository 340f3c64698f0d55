// Package docs holds the OpenAPI document served under /swagger when the
// binary is built with -tags=swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "upscaled maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/models": {
            "get": {
                "produces": ["application/json"],
                "summary": "List catalog models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Session status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/model": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Select a model and start loading it",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.SelectModelRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Unknown model", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Busy", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/model/reload": {
            "post": {
                "produces": ["application/json"],
                "summary": "Reload the selected model",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "409": {"description": "No model or busy", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/image": {
            "put": {
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "summary": "Set the source image",
                "parameters": [
                    {"in": "query", "name": "name", "type": "string", "description": "Original file name"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "409": {"description": "Busy or unreadable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Too large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/run": {
            "post": {
                "produces": ["application/json"],
                "summary": "Upscale the current image with the loaded model",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "409": {"description": "Precondition not met", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Processing failed", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/reset": {
            "post": {
                "summary": "Clear image and output",
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Busy", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/download": {
            "get": {
                "produces": ["image/jpeg", "image/png"],
                "summary": "Download the encoded output",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "No output", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "produces": ["text/event-stream"],
                "summary": "Stream session events",
                "responses": {
                    "200": {"description": "Event stream", "schema": {"$ref": "#/definitions/types.EventMessage"}}
                }
            }
        }
    },
    "definitions": {
        "types.Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "scale": {"type": "string", "example": "4x"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}
            }
        },
        "types.SelectModelRequest": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "Xenova/swin2SR-classical-sr-x4-64"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "Please select an image."},
                "kind": {"type": "string", "example": "validation"},
                "code": {"type": "integer", "example": 409}
            }
        },
        "types.LoadProgress": {
            "type": "object",
            "properties": {
                "phase": {"type": "string", "example": "downloading"},
                "percent": {"type": "integer", "example": 42},
                "file": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "types.ImageStatus": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "mime": {"type": "string"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "url": {"type": "string"}
            }
        },
        "types.OutputStatus": {
            "type": "object",
            "properties": {
                "mime": {"type": "string"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "elapsed_ms": {"type": "integer"},
                "processing_time": {"type": "string", "example": "0.81s"},
                "url": {"type": "string"},
                "download_name": {"type": "string"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "example": "ready"},
                "model": {"$ref": "#/definitions/types.Model"},
                "loaded": {"type": "boolean"},
                "backend": {"type": "string"},
                "progress": {"$ref": "#/definitions/types.LoadProgress"},
                "run_progress": {"type": "integer"},
                "image": {"$ref": "#/definitions/types.ImageStatus"},
                "output": {"$ref": "#/definitions/types.OutputStatus"},
                "error": {"type": "string"},
                "error_kind": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"},
                "loads_total": {"type": "integer"},
                "runs_total": {"type": "integer"}
            }
        },
        "types.EventMessage": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "load_ready"},
                "model_id": {"type": "string"},
                "fields": {"type": "object"},
                "time_unix_ms": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "upscaled API",
	Description:      "HTTP API for image super-resolution model selection and upscaling.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
