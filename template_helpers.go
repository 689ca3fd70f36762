package account

import "maps"

var TemplateUserKey = "current_user"

// TemplateHelpers returns the functions every account page can call.
//
// In templates, you can then use:
//
//	{% if is_authenticated(current_user) %}
//	{% if can_access_admin(current_user) %}
//	{% if has_perm(current_user, "account.add_user") %}
//	{{ display_name(current_user) }}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"can_access_admin": canAccessAdmin,
		"has_perm":         hasPerm,
		"display_name":     displayName,
	}
}

// TemplateHelpersWithUser returns template helpers with a specific user set
// as current_user. Mail templates use it since they have no request.
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	if user != nil {
		helpers[TemplateUserKey] = user
	}
	return helpers
}

// mergeTemplateData layers data over the helpers, data wins
func mergeTemplateData(helpers map[string]any, data map[string]any) map[string]any {
	out := make(map[string]any, len(helpers)+len(data))
	maps.Copy(out, helpers)
	maps.Copy(out, data)
	return out
}

func asUser(user any) *User {
	switch u := user.(type) {
	case *User:
		return u
	case User:
		return &u
	default:
		return nil
	}
}

func isAuthenticated(user any) bool {
	return asUser(user) != nil
}

func canAccessAdmin(user any) bool {
	u := asUser(user)
	return u != nil && u.CanAccessAdmin()
}

func hasPerm(user any, perm string) bool {
	u := asUser(user)
	return u != nil && u.HasPerm(perm)
}

// displayName falls back to the email when no name is set
func displayName(user any) string {
	u := asUser(user)
	if u == nil {
		return ""
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}
