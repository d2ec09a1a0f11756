package openapi

import (
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/rbac"
)

// Version is the document version reported in info.version.
const Version = "1.0.0"

// gate describes what guards a route.
type gate int

const (
	gateNone gate = iota
	gateAuthenticated
	gatePermission
)

// route is one documented admin API operation.
type route struct {
	method      string
	path        string
	tag         string
	operationID string
	summary     string
	gate        gate
	permission  model.Permission
	request     string // component schema name, "" for none
	response    string // component schema name
	status      string
	pathParams  []string
	list        bool
}

// routes mirrors the router in internal/server.
var routes = []route{
	{method: http.MethodPost, path: "/api/admin/auth/login", tag: "auth", operationID: "login",
		summary: "Sign in with email and password", request: "LoginRequest", response: "LoginResponse", status: "200"},
	{method: http.MethodPost, path: "/api/admin/auth/logout", tag: "auth", operationID: "logout",
		summary: "Clear the session cookie", response: "LogoutResponse", status: "200"},
	{method: http.MethodGet, path: "/api/admin/auth/me", tag: "auth", operationID: "me",
		summary: "Current admin and permissions", gate: gateAuthenticated, response: "MeResponse", status: "200"},

	{method: http.MethodGet, path: "/api/admin/roles", tag: "admins", operationID: "listRoles",
		summary: "List roles and their permissions", gate: gatePermission, permission: model.PermRead,
		response: "RoleInfo", status: "200", list: true},
	{method: http.MethodGet, path: "/api/admin/admins", tag: "admins", operationID: "listAdmins",
		summary: "List admin accounts", gate: gatePermission, permission: model.PermRead,
		response: "Admin", status: "200", list: true},
	{method: http.MethodPost, path: "/api/admin/admins", tag: "admins", operationID: "createAdmin",
		summary: "Create an admin account", gate: gatePermission, permission: model.PermManageUsers,
		request: "CreateAdminRequest", response: "Admin", status: "201"},
	{method: http.MethodPatch, path: "/api/admin/admins/{id}/status", tag: "admins", operationID: "setAdminStatus",
		summary: "Activate or deactivate an admin", gate: gatePermission, permission: model.PermManageUsers,
		request: "StatusRequest", response: "Admin", status: "200", pathParams: []string{"id"}},
	{method: http.MethodPatch, path: "/api/admin/admins/{id}/role", tag: "admins", operationID: "setAdminRole",
		summary: "Change an admin's role", gate: gatePermission, permission: model.PermManageUsers,
		request: "RoleRequest", response: "Admin", status: "200", pathParams: []string{"id"}},

	{method: http.MethodGet, path: "/api/admin/notices", tag: "notices", operationID: "listNotices",
		summary: "List notices", gate: gatePermission, permission: model.PermRead,
		response: "Notice", status: "200", list: true},
	{method: http.MethodPost, path: "/api/admin/notices", tag: "notices", operationID: "createNotice",
		summary: "Create a notice", gate: gatePermission, permission: model.PermWrite,
		request: "NoticeRequest", response: "Notice", status: "201"},
	{method: http.MethodPut, path: "/api/admin/notices/{id}", tag: "notices", operationID: "updateNotice",
		summary: "Replace a notice", gate: gatePermission, permission: model.PermWrite,
		request: "NoticeRequest", response: "Notice", status: "200", pathParams: []string{"id"}},
	{method: http.MethodDelete, path: "/api/admin/notices/{id}", tag: "notices", operationID: "deleteNotice",
		summary: "Delete a notice", gate: gatePermission, permission: model.PermDelete,
		response: "DeleteResponse", status: "200", pathParams: []string{"id"}},

	{method: http.MethodGet, path: "/api/admin/settings", tag: "settings", operationID: "listSettings",
		summary: "List site settings", gate: gatePermission, permission: model.PermRead,
		response: "Setting", status: "200", list: true},
	{method: http.MethodPut, path: "/api/admin/settings/{key}", tag: "settings", operationID: "putSetting",
		summary: "Set a site setting", gate: gatePermission, permission: model.PermManageSettings,
		request: "SettingRequest", response: "Setting", status: "200", pathParams: []string{"key"}},
}

// Generate builds the OpenAPI 3.1 document for the admin API.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "SajuWooju Admin API",
			Description: "Back-office API for SajuWooju administrators. Credentials are HS256 tokens valid for 24 hours, sent as a bearer token or the admin cookie.",
			Version:     Version,
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
		"cookieAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type: "apiKey",
				In:   "cookie",
				Name: "admin_token",
			},
		},
	}
	doc.Components = &components
	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
		{"cookieAuth": {}},
	}

	doc.Paths = openapi3.NewPaths()
	for _, rt := range routes {
		item := doc.Paths.Value(rt.path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(rt.path, item)
		}
		item.SetOperation(rt.method, buildOperation(rt))
	}

	return doc
}

func buildOperation(rt route) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        []string{rt.tag},
		Summary:     rt.summary,
		OperationID: rt.operationID,
	}

	for _, name := range rt.pathParams {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
		})
	}
	if rt.list {
		op.Parameters = append(op.Parameters, listQueryParameters()...)
	}

	if rt.request != "" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(schemaRef(rt.request)),
		}
	}

	body := schemaRef(rt.response)
	if rt.list {
		body = listResponseSchema(rt.response)
	}

	var errs []string
	if rt.request != "" || len(rt.pathParams) > 0 {
		errs = append(errs, "400")
	}
	switch rt.gate {
	case gateNone:
		op.Security = &openapi3.SecurityRequirements{}
		switch rt.operationID {
		case "login":
			errs = append(errs, "401", "429", "503")
		case "logout":
			errs = append(errs, "503")
		}
	case gateAuthenticated:
		errs = append(errs, "401", "503")
	case gatePermission:
		errs = append(errs, "401", "403", "503")
		op.Description = "Requires the `" + string(rt.permission) + "` permission (roles: " +
			strings.Join(rolesWith(rt.permission), ", ") + ")."
		op.Extensions = map[string]interface{}{"x-required-permission": string(rt.permission)}
	}
	if len(rt.pathParams) > 0 {
		errs = append(errs, "404")
	}
	if rt.method == http.MethodPost && rt.tag == "admins" || rt.method == http.MethodPatch {
		errs = append(errs, "409")
	}
	op.Responses = newResponses(rt.status, rt.summary, body, errs...)

	return op
}

// rolesWith lists the roles whose permission set includes p.
func rolesWith(p model.Permission) []string {
	var out []string
	for _, role := range rbac.KnownRoles() {
		if rbac.PermissionsFor(role).Has(p) {
			out = append(out, string(role))
		}
	}
	return out
}

var errorDescriptions = map[string]string{
	"400": "Bad request",
	"401": "Not authenticated",
	"403": "Forbidden",
	"404": "Not found",
	"409": "Conflict",
	"429": "Too many requests",
	"503": "Service temporarily unavailable",
}

// newResponses builds the success response plus the listed error responses
// and a 500, all error bodies using the shared ErrorResponse schema.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, errorCodes ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := schemaRef("ErrorResponse")
	for _, code := range append(errorCodes, "500") {
		desc, ok := errorDescriptions[code]
		if !ok {
			desc = "Internal server error"
		}
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

func listQueryParameters() openapi3.Parameters {
	return openapi3.Parameters{
		{Value: openapi3.NewQueryParameter("limit").
			WithDescription("Maximum records to return (1-500, default 50).").
			WithSchema(openapi3.NewIntegerSchema())},
		{Value: openapi3.NewQueryParameter("offset").
			WithDescription("Records to skip.").
			WithSchema(openapi3.NewIntegerSchema())},
	}
}
