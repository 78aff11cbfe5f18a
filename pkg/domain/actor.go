package domain

import dErrors "railledger/pkg/domain-errors"

// ActorType classifies who performed an audited action.
type ActorType string

const (
	ActorUser      ActorType = "user"
	ActorEmployee  ActorType = "employee"
	ActorSystem    ActorType = "system"
	ActorRegulator ActorType = "regulator"
)

var validActorTypes = map[ActorType]bool{
	ActorUser:      true,
	ActorEmployee:  true,
	ActorSystem:    true,
	ActorRegulator: true,
}

// ParseActorType constructs an ActorType from external input.
//
// Usage: call from handlers/adapters when parsing requests; direct casting
// bypasses validation.
func ParseActorType(s string) (ActorType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "actor type cannot be empty")
	}
	a := ActorType(s)
	if !validActorTypes[a] {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid actor type")
	}
	return a, nil
}

func (a ActorType) IsValid() bool { return validActorTypes[a] }

func (a ActorType) String() string { return string(a) }
