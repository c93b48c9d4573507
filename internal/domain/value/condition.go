package value

import (
	"fmt"
	"strings"
)

const (
	permissionPrefix        = "permission:"
	missingPermissionPrefix = "!permission:"
)

type ConditionKind string

const (
	ConditionHasPermission     ConditionKind = "has_permission"
	ConditionMissingPermission ConditionKind = "missing_permission"
)

// Condition условие покупки вида "permission:<node>" или "!permission:<node>".
type Condition struct {
	Kind ConditionKind `json:"kind"`
	Node string        `json:"node"`
}

func ParseCondition(raw string) (Condition, error) {
	trimmed := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(trimmed, missingPermissionPrefix):
		node := strings.TrimPrefix(trimmed, missingPermissionPrefix)
		if node == "" {
			return Condition{}, fmt.Errorf("condition %q: empty permission", raw)
		}

		return Condition{Kind: ConditionMissingPermission, Node: node}, nil
	case strings.HasPrefix(trimmed, permissionPrefix):
		node := strings.TrimPrefix(trimmed, permissionPrefix)
		if node == "" {
			return Condition{}, fmt.Errorf("condition %q: empty permission", raw)
		}

		return Condition{Kind: ConditionHasPermission, Node: node}, nil
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown format", raw)
	}
}

func (c Condition) String() string {
	if c.Kind == ConditionMissingPermission {
		return missingPermissionPrefix + c.Node
	}

	return permissionPrefix + c.Node
}

// Check возвращает причину отказа или пустую строку, если условие выполнено.
func (c Condition) Check(hasPermission func(node string) bool) string {
	switch c.Kind {
	case ConditionHasPermission:
		if !hasPermission(c.Node) {
			return "missing permission " + c.Node
		}
	case ConditionMissingPermission:
		if hasPermission(c.Node) {
			return "already has permission " + c.Node
		}
	}

	return ""
}

// FirstFailed возвращает причину первого невыполненного условия.
func FirstFailed(conditions []Condition, hasPermission func(node string) bool) string {
	for _, c := range conditions {
		if reason := c.Check(hasPermission); reason != "" {
			return reason
		}
	}

	return ""
}
