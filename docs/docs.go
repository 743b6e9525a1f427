// Package docs registers the OpenAPI document served at /api/swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/users/me/username": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Get my username",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/server.UsernameResponse"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Set my username",
                "parameters": [{"description": "New username", "name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"username": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.UsernameResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/me/username/generate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Generate a username",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.UsernameResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/me/profile": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Get my profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Profile"}}}
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Update my profile",
                "parameters": [{"description": "Profile fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ProfileUpdate"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Profile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/{userId}/profile": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Get a user's profile",
                "parameters": [{"type": "integer", "description": "User ID", "name": "userId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Profile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/friends": {
            "get": {
                "produces": ["application/json"],
                "tags": ["friends"],
                "summary": "List my friends",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Friend"}}}}
            }
        },
        "/friends/requests": {
            "get": {
                "produces": ["application/json"],
                "tags": ["friends"],
                "summary": "List pending friend requests addressed to me",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.FriendRequest"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["friends"],
                "summary": "Send a friend request",
                "parameters": [{"description": "Recipient", "name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"recipient_username": {"type": "string"}}}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.FriendRequest"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/friends/requests/{requestId}/respond": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["friends"],
                "summary": "Accept or decline a friend request",
                "parameters": [
                    {"type": "integer", "description": "Request ID", "name": "requestId", "in": "path", "required": true},
                    {"description": "Decision", "name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"accept": {"type": "boolean"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.RespondResult"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/friends/{friendId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["friends"],
                "summary": "Remove a friend",
                "parameters": [{"type": "integer", "description": "Friend user ID", "name": "friendId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.RemoveResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/conversations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "List my conversations",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ConversationView"}}}}
            }
        },
        "/conversations/groups": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "Create a group",
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "properties": {"id": {"type": "integer"}}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/conversations/{id}": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "Rename a group or change its icon",
                "parameters": [
                    {"type": "integer", "description": "Conversation ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ConversationUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Conversation"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/conversations/{id}/members": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "Add members to a group",
                "parameters": [
                    {"type": "integer", "description": "Conversation ID", "name": "id", "in": "path", "required": true},
                    {"description": "Members to add", "name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"member_ids": {"type": "array", "items": {"type": "integer"}}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"added": {"type": "array", "items": {"type": "integer"}}}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/conversations/{id}/leave": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "Leave a group",
                "parameters": [{"type": "integer", "description": "Conversation ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.LeaveResult"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/conversations/{id}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "List messages, oldest first",
                "parameters": [{"type": "integer", "description": "Conversation ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Message"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "Send a message",
                "parameters": [
                    {"type": "integer", "description": "Conversation ID", "name": "id", "in": "path", "required": true},
                    {"description": "Message", "name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"content": {"type": "string"}}}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Message"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "details": {"type": "string"}, "error": {"type": "string"}}
        },
        "models.Profile": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "username": {"type": "string"},
                "profile_image": {"type": "string"},
                "description": {"type": "string"},
                "extended": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.ProfileUpdate": {
            "type": "object",
            "properties": {"profile_image": {"type": "string"}, "description": {"type": "string"}, "extended": {"type": "string"}}
        },
        "models.FriendRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "sender_id": {"type": "integer"},
                "sender_username": {"type": "string"},
                "recipient_id": {"type": "integer"},
                "recipient_username": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "accepted", "declined"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.Friend": {
            "type": "object",
            "properties": {"user_id": {"type": "integer"}, "username": {"type": "string"}}
        },
        "models.Conversation": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string", "enum": ["dm", "group"]},
                "name": {"type": "string"},
                "initiator_id": {"type": "integer"},
                "icon": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.ConversationUpdate": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "icon": {"type": "string"}}
        },
        "models.ParticipantSummary": {
            "type": "object",
            "properties": {"id": {"type": "integer"}, "username": {"type": "string"}}
        },
        "models.ConversationView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string", "enum": ["dm", "group"]},
                "name": {"type": "string"},
                "initiator_id": {"type": "integer"},
                "icon": {"type": "string"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/models.ParticipantSummary"}},
                "created_at": {"type": "string"}
            }
        },
        "models.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "conversation_id": {"type": "integer"},
                "author_id": {"type": "integer"},
                "content": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "server.UsernameResponse": {
            "type": "object",
            "properties": {"username": {"type": "string"}}
        },
        "service.RespondResult": {
            "type": "object",
            "properties": {"request": {"$ref": "#/definitions/models.FriendRequest"}, "conversation": {"$ref": "#/definitions/models.Conversation"}}
        },
        "service.RemoveResult": {
            "type": "object",
            "properties": {
                "declined": {"type": "integer"},
                "deleted_conversations": {"type": "array", "items": {"type": "integer"}},
                "deleted_messages": {"type": "integer"}
            }
        },
        "service.LeaveResult": {
            "type": "object",
            "properties": {"deleted": {"type": "boolean"}, "deleted_messages": {"type": "integer"}}
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
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Murmur API",
	Description:      "Chat backend: profiles, friendships, conversations and messages.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
