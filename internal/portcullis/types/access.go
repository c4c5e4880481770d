package types

import "time"

type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	IsAdmin        bool   `json:"isAdmin"`
	HasCredentials bool   `json:"hasCredentials"`
}

type Credential struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      CredentialType `json:"type"`
	Value     string         `json:"value"`
	Active    bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// CredentialMatch is a credential resolved together with its owner.
type CredentialMatch struct {
	Credential Credential
	User       User
}

type Permission struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	RoomID    string     `json:"roomId"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ExpiredAt reports whether the permission's expiry lies strictly before t.
// A permission without expiry never expires.
func (p Permission) ExpiredAt(t time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(t)
}

type AccessAttempt struct {
	ControllerID    string         `json:"-"`
	CredentialType  CredentialType `json:"credentialType"`
	CredentialValue string         `json:"credentialValue"`
	RequestID       string         `json:"requestId,omitempty"`
}

type DecisionUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

type DecisionRoom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Decision struct {
	Status    AccessStatus  `json:"status"`
	Reason    *DenyReason   `json:"reason"`
	User      *DecisionUser `json:"user,omitempty"`
	Room      *DecisionRoom `json:"room,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
}

func (d Decision) Granted() bool { return d.Status == AccessGranted }

// AccessLogEntry is one immutable audit row.
type AccessLogEntry struct {
	ID                  string       `json:"id"`
	RoomID              string       `json:"roomId"`
	UserID              *string      `json:"userId"`
	CredentialID        *string      `json:"credentialId"`
	CredentialValueUsed string       `json:"credentialValueUsed"`
	Status              AccessStatus `json:"status"`
	Reason              *DenyReason  `json:"reason"`
	Timestamp           time.Time    `json:"timestamp"`
	UserName            *string      `json:"userName,omitempty"`
}
