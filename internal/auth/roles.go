package auth

// permissions are strings like "library:read", "jobs:write", "admin:*"
const (
	PermLibraryRead  = "library:read"
	PermLibraryWrite = "library:write"
	PermJobsWrite    = "jobs:write"
	PermAdminAll     = "admin:*"
)

var roleToPerms = map[string][]string{
	"reader": {PermLibraryRead},
	"editor": {PermLibraryRead, PermLibraryWrite, PermJobsWrite},
	"admin":  {PermLibraryRead, PermLibraryWrite, PermJobsWrite, PermAdminAll},
}

func PermsForRoles(roles []string) map[string]struct{} {
	out := make(map[string]struct{}, 8)
	for _, r := range roles {
		if perms, ok := roleToPerms[r]; ok {
			for _, p := range perms {
				out[p] = struct{}{}
			}
		}
	}
	return out
}

// KnownRole reports whether role grants any permission.
func KnownRole(role string) bool {
	_, ok := roleToPerms[role]
	return ok
}
