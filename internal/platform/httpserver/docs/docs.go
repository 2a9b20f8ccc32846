// Package docs registers the OpenAPI document served at /swagger/.
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
		"/v1/polls": {
			"post": {
				"tags": [
					"polls"
				],
				"summary": "Create a poll",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			},
			"get": {
				"tags": [
					"polls"
				],
				"summary": "List polls",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/polls/{poll_id}": {
			"get": {
				"tags": [
					"polls"
				],
				"summary": "Get a poll",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "poll_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/polls/{poll_id}/results": {
			"get": {
				"tags": [
					"polls"
				],
				"summary": "Get poll tallies and voters",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "poll_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/polls/{poll_id}/window": {
			"patch": {
				"tags": [
					"polls"
				],
				"summary": "Update the voting window",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "poll_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/v1/polls/{poll_id}/votes": {
			"post": {
				"tags": [
					"polls"
				],
				"summary": "Request a stake-weighted vote",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "poll_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"202": {
						"description": "Accepted"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/v1/polls/{poll_id}/ballots/{ballot_id}": {
			"get": {
				"tags": [
					"polls"
				],
				"summary": "Get a ballot",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "poll_id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"name": "ballot_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/polls/{poll_id}/winner": {
			"get": {
				"tags": [
					"polls"
				],
				"summary": "Resolve the winner of an ended poll",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "poll_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/polls/{poll_id}/claims": {
			"post": {
				"tags": [
					"polls"
				],
				"summary": "Claim the voter reward",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "poll_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/jobs": {
			"post": {
				"tags": [
					"jobs"
				],
				"summary": "Open a job",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			},
			"get": {
				"tags": [
					"jobs"
				],
				"summary": "List jobs",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/jobs/{job_id}": {
			"get": {
				"tags": [
					"jobs"
				],
				"summary": "Get a job",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "job_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/jobs/{job_id}/claim": {
			"post": {
				"tags": [
					"jobs"
				],
				"summary": "Claim a job",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "job_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/jobs/{job_id}/start": {
			"post": {
				"tags": [
					"jobs"
				],
				"summary": "Start a job with a counterparty",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "job_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/v1/jobs/{job_id}/complete": {
			"post": {
				"tags": [
					"jobs"
				],
				"summary": "Mark the job complete",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "job_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/v1/jobs/{job_id}/end": {
			"post": {
				"tags": [
					"jobs"
				],
				"summary": "End a completed job and release payouts",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "job_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/v1/jobs/{job_id}/disputes": {
			"post": {
				"tags": [
					"jobs"
				],
				"summary": "Open a dispute poll",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "job_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"202": {
						"description": "Accepted"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/v1/jobs/{job_id}/disputes/resolve": {
			"post": {
				"tags": [
					"jobs"
				],
				"summary": "Resolve a dispute from its poll",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Authenticated caller",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"name": "job_id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"202": {
						"description": "Accepted"
					},
					"401": {
						"description": "Missing X-User-Id"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/v1/job-operations/{operation_id}": {
			"get": {
				"tags": [
					"jobs"
				],
				"summary": "Get a dispute operation",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "operation_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/settlements": {
			"get": {
				"tags": [
					"settlements"
				],
				"summary": "List settlements",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/settlements/{settlement_id}": {
			"get": {
				"tags": [
					"settlements"
				],
				"summary": "Get a settlement",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "settlement_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
			}
		},
		"/v1/reputation/{account}": {
			"get": {
				"tags": [
					"reputation"
				],
				"summary": "Get reputation points",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "account",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Validation error"
					},
					"403": {
						"description": "Authorization error"
					},
					"404": {
						"description": "Not found"
					},
					"409": {
						"description": "Duplicate action"
					}
				}
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
	Title:            "Arbiter API",
	Description:      "Escrow jobs, stake-weighted polls and asynchronous settlements.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
