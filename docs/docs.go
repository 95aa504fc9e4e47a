// Package docs holds the OpenAPI document served at /swagger
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
        "/auth": {
            "post": {
                "description": "Verify the signed Mini App payload, upsert the user and issue a session token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Authenticate with Telegram initData",
                "parameters": [
                    {
                        "description": "Signed initData",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/user.AuthRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/language": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Store the user's locale preference (ru, uz or en)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Switch language",
                "parameters": [
                    {
                        "description": "Locale",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/user.SetLanguageRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/participate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Without ref_code a new group is started with two invite codes; with ref_code the caller joins the inviter's group",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Create or join a group",
                "parameters": [
                    {
                        "description": "Optional invite code",
                        "name": "request",
                        "in": "body",
                        "schema": {"$ref": "#/definitions/group.ParticipateRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/invites": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Deep links for every unredeemed code the caller owns in a forming group",
                "produces": ["application/json"],
                "tags": ["invites"],
                "summary": "List invite links",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/group/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get a group with its members, paid count and remaining time",
                "produces": ["application/json"],
                "tags": ["groups"],
                "summary": "Group status",
                "parameters": [
                    {"type": "integer", "description": "Group ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/payment/init": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Create a gateway transaction for the caller's pending payment and return the URL to pay at",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Start a payment",
                "parameters": [
                    {
                        "description": "Group and provider",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/payment.InitRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/response.APIResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        },
        "/payment/callback/{provider}": {
            "post": {
                "description": "Authenticated by provider credentials; replies in the provider's own format. Redelivery is acknowledged as success.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Payment provider callback",
                "parameters": [
                    {"type": "string", "description": "payme or click", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "response.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "response.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"$ref": "#/definitions/response.APIError"}
            }
        },
        "user.AuthRequest": {
            "type": "object",
            "required": ["init_data"],
            "properties": {
                "init_data": {"type": "string"}
            }
        },
        "user.SetLanguageRequest": {
            "type": "object",
            "required": ["lang"],
            "properties": {
                "lang": {"type": "string"}
            }
        },
        "group.ParticipateRequest": {
            "type": "object",
            "properties": {
                "ref_code": {"type": "string", "maxLength": 64}
            }
        },
        "payment.InitRequest": {
            "type": "object",
            "required": ["group_id", "provider"],
            "properties": {
                "group_id": {"type": "integer"},
                "provider": {"type": "string", "enum": ["payme", "click"]}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Group Buy API",
	Description:      "Referral-driven three-member group purchases paid through Payme or Click.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
