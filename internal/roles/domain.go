package roles

// Role describes one registry entry for navigation and administration.
type Role struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Permissions []string `json:"permissions"`
	// Members is only reported to principals that manage users.
	Members *int `json:"members,omitempty"`
}

var labels = map[string]string{
	"admin":  "Administrator",
	"editor": "Editor",
	"viewer": "Viewer",
}
