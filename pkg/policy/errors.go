package policy

import (
	"errors"
	"fmt"
)

// ErrMissingDefaultPermissions reports a policy document without the
// required default.permissions section. This is fatal at startup: the
// broker cannot resolve a ceiling for any repository without a default.
var ErrMissingDefaultPermissions = errors.New("policy: document does not define default.permissions")

// ErrNoGrantablePermissions reports that resolution produced an empty
// permission set. Minting proceeds only with an explicit non-empty
// map: GitHub treats an access token request without a permissions
// field as "grant everything the App holds", so an empty result must
// fail instead of reaching the API.
var ErrNoGrantablePermissions = errors.New("policy: no permissions are grantable for this repository")

// UnknownPermissionError reports a permission name outside the fixed
// enumeration, in a policy document or in a caller's token request
type UnknownPermissionError struct {
	Name string
}

func (e *UnknownPermissionError) Error() string {
	return fmt.Sprintf("policy: unknown permission name %q", e.Name)
}

// InvalidAccessLevelError reports an access level outside {read, write, none}
type InvalidAccessLevelError struct {
	Value string
}

func (e *InvalidAccessLevelError) Error() string {
	return fmt.Sprintf("policy: invalid access level %q (must be read, write, or none)", e.Value)
}

// PermissionNotAllowedError reports a requested permission that the
// resolved ceiling does not grant at all (no entry, or entry is "none")
type PermissionNotAllowedError struct {
	Permission Permission
}

func (e *PermissionNotAllowedError) Error() string {
	return fmt.Sprintf("policy: permission %q is not allowed for this repository", e.Permission)
}

// WriteNotAllowedError reports a write request against a read-only ceiling
type WriteNotAllowedError struct {
	Permission Permission
}

func (e *WriteNotAllowedError) Error() string {
	return fmt.Sprintf("policy: write access to %q is not allowed for this repository (ceiling is read)", e.Permission)
}
