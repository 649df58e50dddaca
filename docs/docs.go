// Package docs registers the generated Swagger document for the sweep API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "description": "REST API for asynchronous Minecraft server address sweeps.",
    "title": "mc-ip-scanner API",
    "version": "1.0"
  },
  "basePath": "/api/v1",
  "paths": {
    "/sweeps": {
      "post": {
        "consumes": [
          "application/json"
        ],
        "produces": [
          "application/json"
        ],
        "summary": "Submit an address sweep",
        "description": "Queue a sweep of a CIDR block, a single host's neighborhood, or randomly drawn public addresses. Returns immediately with a task ID; poll GET /sweeps/{id} until the status reaches completed or failed.",
        "tags": [
          "Sweeps"
        ],
        "security": [
          {
            "ApiKeyAuth": []
          }
        ],
        "parameters": [
          {
            "description": "Sweep parameters",
            "name": "sweepRequest",
            "in": "body",
            "required": true,
            "schema": {
              "$ref": "#/definitions/CreateSweepRequest"
            }
          }
        ],
        "responses": {
          "202": {
            "description": "Sweep accepted",
            "schema": {
              "$ref": "#/definitions/SweepAcceptedResponse"
            }
          },
          "400": {
            "description": "Malformed body or failed validation",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          },
          "401": {
            "description": "Missing or incorrect API key",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          },
          "429": {
            "description": "Rate limit exceeded",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          },
          "500": {
            "description": "Internal error while persisting or queueing",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          }
        }
      }
    },
    "/sweeps/{id}": {
      "get": {
        "produces": [
          "application/json"
        ],
        "summary": "Get sweep status and results",
        "description": "Retrieve a snapshot of a sweep task. Found servers and aggregate counters are attached once the status reaches completed.",
        "tags": [
          "Sweeps"
        ],
        "security": [
          {
            "ApiKeyAuth": []
          }
        ],
        "parameters": [
          {
            "type": "string",
            "description": "Sweep Task ID (UUID v4)",
            "name": "id",
            "in": "path",
            "required": true
          }
        ],
        "responses": {
          "200": {
            "description": "Current task snapshot",
            "schema": {
              "$ref": "#/definitions/SweepTask"
            }
          },
          "400": {
            "description": "Malformed task identifier",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          },
          "401": {
            "description": "Missing or incorrect API key",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          },
          "404": {
            "description": "Unknown task",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          },
          "500": {
            "description": "Internal error while loading the task",
            "schema": {
              "$ref": "#/definitions/ErrorResponse"
            }
          }
        }
      }
    }
  },
  "securityDefinitions": {
    "ApiKeyAuth": {
      "type": "apiKey",
      "name": "Authorization",
      "in": "header"
    }
  },
  "definitions": {
    "CreateSweepRequest": {
      "type": "object",
      "required": [
        "mode"
      ],
      "properties": {
        "mode": {
          "type": "string",
          "enum": [
            "cidr",
            "host",
            "random"
          ],
          "example": "cidr"
        },
        "target": {
          "type": "string",
          "example": "203.0.113.0/28"
        },
        "port": {
          "type": "integer",
          "example": 25565
        },
        "count": {
          "type": "integer",
          "example": 1000
        }
      },
      "additionalProperties": false
    },
    "SweepAcceptedResponse": {
      "type": "object",
      "properties": {
        "id": {
          "type": "string",
          "example": "a3f5c62e-1234-4f72-a84a-1c2d3e4f5678"
        },
        "status": {
          "type": "string",
          "example": "pending"
        }
      },
      "additionalProperties": false
    },
    "ErrorResponse": {
      "type": "object",
      "properties": {
        "error": {
          "type": "string",
          "example": "task not found"
        }
      },
      "additionalProperties": false
    },
    "SweepStats": {
      "type": "object",
      "properties": {
        "ips_scanned": {
          "type": "integer"
        },
        "servers_found": {
          "type": "integer"
        },
        "errors": {
          "type": "integer"
        },
        "last_ip": {
          "type": "string",
          "example": "203.0.113.15"
        }
      },
      "additionalProperties": false
    },
    "ServerRecord": {
      "type": "object",
      "properties": {
        "ip": {
          "type": "string",
          "example": "203.0.113.7"
        },
        "port": {
          "type": "integer",
          "example": 25565
        },
        "version": {
          "type": "string",
          "example": "1.20.4"
        },
        "players_online": {
          "type": "integer"
        },
        "players_max": {
          "type": "integer"
        },
        "latency_ms": {
          "type": "number"
        },
        "description": {
          "type": "string"
        },
        "possible_whitelist": {
          "type": "boolean"
        },
        "player_samples": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "name": {
                "type": "string"
              }
            }
          }
        }
      },
      "additionalProperties": false
    },
    "SweepTask": {
      "type": "object",
      "properties": {
        "id": {
          "type": "string",
          "example": "a3f5c62e-1234-4f72-a84a-1c2d3e4f5678"
        },
        "status": {
          "type": "string",
          "enum": [
            "pending",
            "running",
            "completed",
            "failed"
          ]
        },
        "mode": {
          "type": "string",
          "example": "cidr"
        },
        "target": {
          "type": "string",
          "example": "203.0.113.0/28"
        },
        "port": {
          "type": "integer",
          "example": 25565
        },
        "count": {
          "type": "integer"
        },
        "found": {
          "type": "array",
          "items": {
            "$ref": "#/definitions/ServerRecord"
          }
        },
        "stats": {
          "$ref": "#/definitions/SweepStats"
        },
        "created_at": {
          "type": "string"
        },
        "completed_at": {
          "type": "string"
        },
        "error": {
          "type": "string"
        }
      },
      "additionalProperties": false
    }
  }
}
`

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

type swaggerDoc struct{}

func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}
