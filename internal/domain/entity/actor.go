package entity

import "slices"

// Actor игрок, от имени которого выполняется операция.
type Actor struct {
	ID          string
	Name        string
	Permissions []string
}

func (a Actor) HasPermission(node string) bool {
	return slices.Contains(a.Permissions, node)
}
