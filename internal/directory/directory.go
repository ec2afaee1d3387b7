// Package directory holds the administrator roster and the user allowlist,
// loaded once at process start and read-only afterwards.
package directory

import (
	"fmt"
	"sort"
)

type Directory struct {
	admins  map[int64]string
	allowed map[int64]struct{}
}

// New builds a directory from the allowlist and the admin id -> display name
// mapping. Administrators are always allowed, listed or not.
func New(allowedUsers []int64, adminUsers map[int64]string) *Directory {
	d := &Directory{
		admins:  make(map[int64]string, len(adminUsers)),
		allowed: make(map[int64]struct{}, len(allowedUsers)+len(adminUsers)),
	}
	for _, id := range allowedUsers {
		d.allowed[id] = struct{}{}
	}
	for id, name := range adminUsers {
		d.admins[id] = name
		d.allowed[id] = struct{}{}
	}
	return d
}

func (d *Directory) IsAllowed(userID int64) bool {
	_, ok := d.allowed[userID]
	return ok
}

func (d *Directory) IsAdmin(userID int64) bool {
	_, ok := d.admins[userID]
	return ok
}

// AdminName returns the display name for an administrator, falling back to the
// numeric id for unknown entries.
func (d *Directory) AdminName(userID int64) string {
	if name, ok := d.admins[userID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("admin %d", userID)
}

// AdminIDs returns all administrator ids in stable (ascending) order.
func (d *Directory) AdminIDs() []int64 {
	ids := make([]int64, 0, len(d.admins))
	for id := range d.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
