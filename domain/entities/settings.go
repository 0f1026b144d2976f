package entities

import "slices"

// Settings is the per-scope configuration record
type Settings struct {
	Scope            string   `json:"scope"`
	WageringEnabled  bool     `json:"wagering_enabled"`
	WageringWindowID int64    `json:"wagering_window_id"`
	AuditChannelID   string   `json:"audit_channel_id"`
	PrivilegedUsers  []string `json:"privileged_users"`
	PrivilegedRoles  []string `json:"privileged_roles"`

	Version int64 `json:"-"`
}

// NewSettings returns the defaults for a scope: wagering closed, nothing privileged
func NewSettings(scope string) *Settings {
	return &Settings{
		Scope:           scope,
		PrivilegedUsers: []string{},
		PrivilegedRoles: []string{},
	}
}

// HasAuditChannel checks if an audit channel is configured
func (s *Settings) HasAuditChannel() bool {
	return s.AuditChannelID != ""
}

// IsPrivileged checks the identity and its roles against the privileged lists
func (s *Settings) IsPrivileged(identity string, roles []string) bool {
	if slices.Contains(s.PrivilegedUsers, identity) {
		return true
	}
	for _, role := range roles {
		if slices.Contains(s.PrivilegedRoles, role) {
			return true
		}
	}
	return false
}

// OpenWageringWindow enables wagering under a new window id
func (s *Settings) OpenWageringWindow() {
	s.WageringEnabled = true
	s.WageringWindowID++
}

// CloseWageringWindow disables wagering
func (s *Settings) CloseWageringWindow() {
	s.WageringEnabled = false
}

// SettingsPatch is a shallow patch. Nil fields are left untouched; list fields replace the stored list.
type SettingsPatch struct {
	WageringEnabled *bool     `json:"wagering_enabled,omitempty"`
	AuditChannelID  *string   `json:"audit_channel_id,omitempty"`
	PrivilegedUsers *[]string `json:"privileged_users,omitempty"`
	PrivilegedRoles *[]string `json:"privileged_roles,omitempty"`
}

// Apply merges the patch into the settings
func (s *Settings) Apply(p *SettingsPatch) {
	if p.WageringEnabled != nil {
		s.WageringEnabled = *p.WageringEnabled
	}
	if p.AuditChannelID != nil {
		s.AuditChannelID = *p.AuditChannelID
	}
	if p.PrivilegedUsers != nil {
		s.PrivilegedUsers = dedupe(*p.PrivilegedUsers)
	}
	if p.PrivilegedRoles != nil {
		s.PrivilegedRoles = dedupe(*p.PrivilegedRoles)
	}
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
