package admin

import "time"

type User struct {
	ID           int64                 `json:"id"`
	Username     string                `json:"username"`
	PasswordHash string                `json:"-"`
	IsAdmin      bool                  `json:"is_admin"`
	CreatedAt    time.Time             `json:"created_at"`
	Permissions  map[string]Permission `json:"permissions,omitempty"`
}

// Permission scopes a non-admin user's access to one branch.
type Permission struct {
	CanView    bool `json:"can_view" yaml:"can_view"`
	CanTrigger bool `json:"can_trigger" yaml:"can_trigger"`
	CanDisable bool `json:"can_disable" yaml:"can_disable"`
}

type BranchStatus struct {
	Branch     string     `json:"branch"`
	Enabled    bool       `json:"enabled"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
	DisabledBy string     `json:"disabled_by,omitempty"`
	LastCheck  time.Time  `json:"last_check"`
}

// BranchHealth is the live view of one branch instance, combining the stored
// enabled flag with an HTTP probe of the instance.
type BranchHealth struct {
	Branch  string `json:"branch"`
	Online  bool   `json:"online"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Enabled bool   `json:"enabled"`
}
