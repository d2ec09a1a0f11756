package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/rbac"
)

func schemaRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func object(required []string, props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	}}
}

func str() *openapi3.SchemaRef       { return openapi3.NewStringSchema().NewRef() }
func boolean() *openapi3.SchemaRef   { return openapi3.NewBoolSchema().NewRef() }
func dateTime() *openapi3.SchemaRef  { return openapi3.NewDateTimeSchema().NewRef() }
func uuidField() *openapi3.SchemaRef { return openapi3.NewUUIDSchema().NewRef() }

func roleSchema() *openapi3.SchemaRef {
	var roles []interface{}
	for _, r := range rbac.KnownRoles() {
		roles = append(roles, string(r))
	}
	return openapi3.NewStringSchema().WithEnum(roles...).NewRef()
}

func permissionSchema() *openapi3.SchemaRef {
	var perms []interface{}
	for _, p := range rbac.AllPermissions() {
		perms = append(perms, string(p))
	}
	return openapi3.NewStringSchema().WithEnum(perms...).NewRef()
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: items,
	}}
}

func listResponseSchema(item string) *openapi3.SchemaRef {
	return object([]string{"resource"}, openapi3.Schemas{
		"resource": arrayOf(schemaRef(item)),
		"meta":     metaSchema(),
	})
}

func metaSchema() *openapi3.SchemaRef {
	return object(nil, openapi3.Schemas{
		"count":  openapi3.NewInt64Schema().WithMin(0).NewRef(),
		"limit":  openapi3.NewInt32Schema().NewRef(),
		"offset": openapi3.NewInt32Schema().NewRef(),
	})
}

func componentSchemas() openapi3.Schemas {
	profile := object([]string{"id", "email", "name", "role"}, openapi3.Schemas{
		"id":    uuidField(),
		"email": openapi3.NewStringSchema().WithFormat("email").NewRef(),
		"name":  str(),
		"role":  roleSchema(),
	})

	return openapi3.Schemas{
		"ErrorResponse": object([]string{"error"}, openapi3.Schemas{
			"error": object([]string{"code", "message"}, openapi3.Schemas{
				"code":    openapi3.NewInt32Schema().NewRef(),
				"message": str(),
				"context": openapi3.NewObjectSchema().NewRef(),
			}),
		}),

		"AdminProfile": profile,
		"Admin": object([]string{"id", "email", "name", "role", "is_active", "created_at", "updated_at"}, openapi3.Schemas{
			"id":            uuidField(),
			"email":         openapi3.NewStringSchema().WithFormat("email").NewRef(),
			"name":          str(),
			"role":          roleSchema(),
			"is_active":     boolean(),
			"last_login_at": dateTime(),
			"created_at":    dateTime(),
			"updated_at":    dateTime(),
		}),
		"RoleInfo": object([]string{"role", "permissions"}, openapi3.Schemas{
			"role":        roleSchema(),
			"permissions": arrayOf(permissionSchema()),
		}),

		"LoginRequest": object([]string{"email", "password"}, openapi3.Schemas{
			"email":    openapi3.NewStringSchema().WithFormat("email").WithMaxLength(254).NewRef(),
			"password": openapi3.NewStringSchema().WithMaxLength(256).NewRef(),
		}),
		"LoginResponse": object([]string{"success", "admin", "token", "token_type", "expires_in"}, openapi3.Schemas{
			"success":    boolean(),
			"admin":      schemaRef("AdminProfile"),
			"token":      str(),
			"token_type": openapi3.NewStringSchema().WithEnum("Bearer").NewRef(),
			"expires_in": openapi3.NewIntegerSchema().NewRef(),
		}),
		"LogoutResponse": object([]string{"success"}, openapi3.Schemas{
			"success": boolean(),
			"revoked": boolean(),
		}),
		"MeResponse": object([]string{"admin", "permissions"}, openapi3.Schemas{
			"admin":       schemaRef("AdminProfile"),
			"permissions": arrayOf(permissionSchema()),
		}),

		"CreateAdminRequest": object([]string{"email", "password", "name", "role"}, openapi3.Schemas{
			"email":    openapi3.NewStringSchema().WithFormat("email").WithMaxLength(254).NewRef(),
			"password": openapi3.NewStringSchema().WithMinLength(8).WithMaxLength(256).NewRef(),
			"name":     openapi3.NewStringSchema().WithMaxLength(100).NewRef(),
			"role":     roleSchema(),
		}),
		"StatusRequest": object([]string{"is_active"}, openapi3.Schemas{
			"is_active": boolean(),
		}),
		"RoleRequest": object([]string{"role"}, openapi3.Schemas{
			"role": roleSchema(),
		}),

		"Notice": object([]string{"id", "title", "published", "pinned"}, openapi3.Schemas{
			"id":         uuidField(),
			"title":      str(),
			"body":       str(),
			"published":  boolean(),
			"pinned":     boolean(),
			"created_by": str(),
			"updated_by": str(),
			"created_at": dateTime(),
			"updated_at": dateTime(),
		}),
		"NoticeRequest": object([]string{"title"}, openapi3.Schemas{
			"title":     openapi3.NewStringSchema().WithMaxLength(200).NewRef(),
			"body":      openapi3.NewStringSchema().WithMaxLength(20000).NewRef(),
			"published": boolean(),
			"pinned":    boolean(),
		}),
		"DeleteResponse": object([]string{"success", "id"}, openapi3.Schemas{
			"success": boolean(),
			"id":      str(),
		}),

		"Setting": object([]string{"key", "value"}, openapi3.Schemas{
			"key":        openapi3.NewStringSchema().WithPattern(`^[a-z][a-z0-9_.]{0,99}$`).NewRef(),
			"value":      str(),
			"updated_by": str(),
			"updated_at": dateTime(),
		}),
		"SettingRequest": object([]string{"value"}, openapi3.Schemas{
			"value": openapi3.NewStringSchema().WithMaxLength(10000).NewRef(),
		}),
	}
}

// Permissions returns the permission each documented operation requires,
// keyed by operation ID. Operations without a permission gate are omitted.
func Permissions() map[string]model.Permission {
	out := make(map[string]model.Permission)
	for _, rt := range routes {
		if rt.gate == gatePermission {
			out[rt.operationID] = rt.permission
		}
	}
	return out
}
