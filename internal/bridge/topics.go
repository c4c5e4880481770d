package bridge

import "strings"

// Kind is the last segment of a device topic.
type Kind string

const (
	KindRegister      Kind = "register"
	KindHeartbeat     Kind = "heartbeat"
	KindStatus        Kind = "status"
	KindAccessAttempt Kind = "access-attempt"
	KindCommandResult Kind = "command-result"
)

var inboundKinds = []Kind{KindRegister, KindHeartbeat, KindStatus, KindAccessAttempt, KindCommandResult}

// Topics builds and parses "{prefix}/{controllerId}/{kind}" topics.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return "door"
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Subscriptions lists the wildcard filters for every inbound kind.
func (t Topics) Subscriptions() []string {
	out := make([]string, 0, len(inboundKinds))
	for _, k := range inboundKinds {
		out = append(out, t.prefix()+"/+/"+string(k))
	}
	return out
}

// Parse splits an inbound topic. ok is false for anything that is not
// exactly prefix/id/kind with a known kind.
func (t Topics) Parse(topic string) (controllerID string, kind Kind, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix()+"/")
	if !found {
		return "", "", false
	}
	id, k, found := strings.Cut(rest, "/")
	if !found || id == "" || strings.Contains(k, "/") {
		return "", "", false
	}
	for _, known := range inboundKinds {
		if Kind(k) == known {
			return id, known, true
		}
	}
	return "", "", false
}

func (t Topics) AccessResult(controllerID string) string {
	return t.prefix() + "/" + controllerID + "/access-result"
}

func (t Topics) Command(controllerID string) string {
	return t.prefix() + "/" + controllerID + "/command"
}

func (t Topics) RegisterRequired(controllerID string) string {
	return t.prefix() + "/" + controllerID + "/register-required"
}
