package types

import "time"

type Command struct {
	ID            string         `json:"id"`
	ControllerID  string         `json:"controllerId"`
	Type          CommandType    `json:"type"`
	Status        CommandStatus  `json:"status"`
	Payload       map[string]any `json:"payload"`
	ResultPayload map[string]any `json:"resultPayload"`
	ErrorMessage  *string        `json:"errorMessage"`
	ExpiresAt     *time.Time     `json:"expiresAt"`
	SentAt        *time.Time     `json:"sentAt"`
	ProcessedAt   *time.Time     `json:"processedAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ExpiredAt reports whether the command deadline is at or before t.
func (c Command) ExpiredAt(t time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(t)
}

func (c Command) Summary() CommandSummary {
	return CommandSummary{
		ID:          c.ID,
		Type:        c.Type,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt,
		SentAt:      c.SentAt,
		ProcessedAt: c.ProcessedAt,
	}
}

type CommandSummary struct {
	ID          string        `json:"id"`
	Type        CommandType   `json:"type"`
	Status      CommandStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	SentAt      *time.Time    `json:"sentAt"`
	ProcessedAt *time.Time    `json:"processedAt"`
}

type CreateCommandRequest struct {
	ControllerID     string         `json:"-"`
	Type             CommandType    `json:"type"`
	Payload          map[string]any `json:"payload,omitempty"`
	ExpiresInSeconds *int           `json:"expiresInSeconds,omitempty"`
}

type PullRequest struct {
	ControllerID string `json:"-"`
	Limit        int    `json:"limit,omitempty"`
}

type AckRequest struct {
	// ControllerID is informational; commands are resolved by id alone.
	ControllerID  string         `json:"-"`
	CommandID     string         `json:"-"`
	Status        CommandStatus  `json:"status"`
	ResultPayload map[string]any `json:"resultPayload,omitempty"`
	ErrorMessage  *string        `json:"errorMessage,omitempty"`
}
