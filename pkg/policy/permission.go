// Package policy loads the broker's permission policy document and resolves
// the effective permission ceiling for a repository
package policy

import (
	"fmt"
	"sort"
)

// Permission identifies one GitHub App repository permission.
// The set is closed: values outside this enumeration are rejected at
// policy load time and at request validation time.
type Permission string

// Supported repository permissions
const (
	PermissionContents       Permission = "contents"
	PermissionMetadata       Permission = "metadata"
	PermissionIssues         Permission = "issues"
	PermissionPullRequests   Permission = "pull_requests"
	PermissionDeployments    Permission = "deployments"
	PermissionPackages       Permission = "packages"
	PermissionActions        Permission = "actions"
	PermissionSecurityEvents Permission = "security_events"
	PermissionStatuses       Permission = "statuses"
	PermissionChecks         Permission = "checks"
	PermissionDiscussions    Permission = "discussions"
	PermissionPages          Permission = "pages"
	PermissionWorkflows      Permission = "workflows"
)

// knownPermissions is the membership set for ParsePermission
var knownPermissions = map[Permission]bool{
	PermissionContents:       true,
	PermissionMetadata:       true,
	PermissionIssues:         true,
	PermissionPullRequests:   true,
	PermissionDeployments:    true,
	PermissionPackages:       true,
	PermissionActions:        true,
	PermissionSecurityEvents: true,
	PermissionStatuses:       true,
	PermissionChecks:         true,
	PermissionDiscussions:    true,
	PermissionPages:          true,
	PermissionWorkflows:      true,
}

// ParsePermission converts a raw string into a Permission
// Returns an UnknownPermissionError for values outside the fixed enumeration
func ParsePermission(name string) (Permission, error) {
	p := Permission(name)
	if !knownPermissions[p] {
		return "", &UnknownPermissionError{Name: name}
	}
	return p, nil
}

// AccessLevel is the access granted for one permission
// Levels are totally ordered: none < read < write
type AccessLevel string

// Supported access levels
const (
	AccessNone  AccessLevel = "none"
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// rank orders access levels for ceiling comparisons
var rank = map[AccessLevel]int{
	AccessNone:  0,
	AccessRead:  1,
	AccessWrite: 2,
}

// ParseAccessLevel converts a raw string into an AccessLevel
// Returns an InvalidAccessLevelError for values outside {read, write, none}
func ParseAccessLevel(value string) (AccessLevel, error) {
	l := AccessLevel(value)
	if _, ok := rank[l]; !ok {
		return "", &InvalidAccessLevelError{Value: value}
	}
	return l, nil
}

// Allows reports whether a ceiling at level l covers a request for level
// requested. A "none" ceiling allows nothing, including "none" itself.
func (l AccessLevel) Allows(requested AccessLevel) bool {
	if l == AccessNone {
		return false
	}
	return rank[requested] <= rank[l]
}

// PermissionMap maps permissions to their granted access level
type PermissionMap map[Permission]AccessLevel

// Wire converts the map to the plain string form used in GitHub API
// request bodies
func (m PermissionMap) Wire() map[string]string {
	wire := make(map[string]string, len(m))
	for perm, level := range m {
		wire[string(perm)] = string(level)
	}
	return wire
}

// Clone returns a copy of the map that callers may mutate freely
func (m PermissionMap) Clone() PermissionMap {
	clone := make(PermissionMap, len(m))
	for perm, level := range m {
		clone[perm] = level
	}
	return clone
}

// String renders the map with sorted keys for log and error messages
func (m PermissionMap) String() string {
	keys := make([]string, 0, len(m))
	for perm := range m {
		keys = append(keys, string(perm))
	}
	sort.Strings(keys)

	out := "{"
	for i, key := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %s", key, m[Permission(key)])
	}
	return out + "}"
}

// parsePermissionMap validates a raw permission map from a policy document
// or a token request and converts it into typed form
func parsePermissionMap(raw map[string]string) (PermissionMap, error) {
	parsed := make(PermissionMap, len(raw))
	for name, value := range raw {
		perm, err := ParsePermission(name)
		if err != nil {
			return nil, err
		}
		level, err := ParseAccessLevel(value)
		if err != nil {
			return nil, err
		}
		parsed[perm] = level
	}
	return parsed, nil
}
