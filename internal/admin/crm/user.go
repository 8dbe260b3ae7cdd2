package crm

import (
	"strings"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// User is a staff account of the CRM.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	RoleID    string
	RoleName  string
	Active    bool
	LastLogin time.Time
	Timestamps
}

// DecodeUser maps a raw record to a User. Password hashes are never read.
func DecodeUser(r collection.Record) (User, error) {
	id, err := requireID(r)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:         id,
		Name:       r.String("name"),
		Email:      r.String("email"),
		Phone:      r.String("phone"),
		Active:     true,
		Timestamps: decodeTimestamps(r),
	}
	u.RoleID, u.RoleName = r.Ref("role", "name")
	if u.RoleName == "" && r.Record("role") == nil {
		u.RoleName = u.RoleID
	}
	if r.Has("active") {
		u.Active = r.Bool("active")
	} else if r.Has("isActive") {
		u.Active = r.Bool("isActive")
	}
	u.LastLogin, _ = r.Time("lastLogin")
	return u, nil
}

func userSpec() Spec[User] {
	return Spec[User]{
		Key:              "users",
		Label:            "Users",
		Singular:         "User",
		Endpoint:         collection.Endpoint{Collection: "users", ListKey: "users", ItemKey: "user"},
		Paging:           viewquery.ClientPaging,
		PageFloor:        1,
		ViewCapability:   rbac.CapUsersView,
		ManageCapability: rbac.CapUsersManage,
		Codec: collection.Codec[User]{
			Decode: DecodeUser,
			ID:     func(u User) string { return u.ID },
		},
		Schema: viewquery.Schema[User]{
			Fields: map[string]viewquery.Accessor[User]{
				"name":      func(u User) viewquery.Value { return viewquery.OptionalString(u.Name) },
				"email":     func(u User) viewquery.Value { return viewquery.OptionalString(u.Email) },
				"role":      func(u User) viewquery.Value { return viewquery.OptionalString(u.RoleName) },
				"active":    func(u User) viewquery.Value { return viewquery.Bool(u.Active) },
				"lastLogin": func(u User) viewquery.Value { return viewquery.Time(u.LastLogin) },
			},
			Searchable:   []string{"name", "email", "role"},
			DefaultOrder: recency(func(u User) Timestamps { return u.Timestamps }),
		},
		Title: func(u User) string { return u.Name },
		Columns: []Column[User]{
			{Key: "name", Label: "Name", Render: func(u User) string { return orDash(u.Name) }},
			{Key: "email", Label: "Email", Render: func(u User) string { return orDash(u.Email) }},
			{Key: "role", Label: "Role", Render: func(u User) string { return Label(u.RoleName) }},
			{Key: "lastLogin", Label: "Last login", Render: func(u User) string { return Day(u.LastLogin) }},
			{
				Key:   "active",
				Label: "Active",
				Render: func(u User) string {
					if u.Active {
						return "Active"
					}
					return "Disabled"
				},
				Tone: func(u User) string {
					if u.Active {
						return "success"
					}
					return "danger"
				},
			},
		},
		Form: []FormField{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
			{Name: "phone", Label: "Phone", Type: FieldPhone},
			{Name: "role", Label: "Role ID", Type: FieldText, Required: true},
			{Name: "active", Label: "Active", Type: FieldCheckbox},
		},
		Values: func(u User) map[string]string {
			active := ""
			if u.Active {
				active = "on"
			}
			return map[string]string{
				"name":   u.Name,
				"email":  u.Email,
				"phone":  u.Phone,
				"role":   u.RoleID,
				"active": active,
			}
		},
		Describe: func(u User) []DetailField {
			return []DetailField{
				{Label: "Email", Text: orDash(u.Email)},
				{Label: "Phone", Text: orDash(u.Phone)},
				{Label: "Role", Text: Label(u.RoleName)},
				{Label: "Last login", Text: Day(u.LastLogin)},
			}
		},
	}
}

// Role is a named permission set assigned to users.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []string
	Timestamps
}

// DecodeRole maps a raw record to a Role.
func DecodeRole(r collection.Record) (Role, error) {
	id, err := requireID(r)
	if err != nil {
		return Role{}, err
	}
	return Role{
		ID:          id,
		Name:        r.String("name"),
		Description: r.String("description"),
		Permissions: r.Strings("permissions"),
		Timestamps:  decodeTimestamps(r),
	}, nil
}

func roleSpec() Spec[Role] {
	return Spec[Role]{
		Key:              "roles",
		Label:            "Roles",
		Singular:         "Role",
		Endpoint:         collection.Endpoint{Collection: "roles", ListKey: "roles", ItemKey: "role"},
		Paging:           viewquery.ClientPaging,
		PageFloor:        1,
		ViewCapability:   rbac.CapRolesView,
		ManageCapability: rbac.CapRolesManage,
		Codec: collection.Codec[Role]{
			Decode: DecodeRole,
			ID:     func(r Role) string { return r.ID },
		},
		Schema: viewquery.Schema[Role]{
			Fields: map[string]viewquery.Accessor[Role]{
				"name":        func(r Role) viewquery.Value { return viewquery.OptionalString(r.Name) },
				"description": func(r Role) viewquery.Value { return viewquery.OptionalString(r.Description) },
				"permissions": func(r Role) viewquery.Value { return viewquery.Int(len(r.Permissions)) },
			},
			Searchable: []string{"name", "description"},
		},
		Title: func(r Role) string { return r.Name },
		Columns: []Column[Role]{
			{Key: "name", Label: "Role", Render: func(r Role) string { return Label(r.Name) }},
			{Key: "description", Label: "Description", Render: func(r Role) string { return orDash(r.Description) }},
			{Key: "permissions", Label: "Permissions", Render: func(r Role) string { return orDash(strings.Join(r.Permissions, ", ")) }},
		},
		Form: []FormField{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			{Name: "description", Label: "Description", Type: FieldTextarea},
			{Name: "permissions", Label: "Permissions", Type: FieldTags, Help: "Comma separated, e.g. bookings.view"},
		},
		Values: func(r Role) map[string]string {
			return map[string]string{
				"name":        r.Name,
				"description": r.Description,
				"permissions": strings.Join(r.Permissions, ", "),
			}
		},
		Describe: func(r Role) []DetailField {
			return []DetailField{
				{Label: "Description", Text: orDash(r.Description)},
				{Label: "Permissions", Text: orDash(strings.Join(r.Permissions, ", "))},
			}
		},
	}
}
