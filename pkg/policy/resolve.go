package policy

// EffectivePermissions computes the permission map to mint for one
// owner/repo pair.
//
// The ceiling is built by layering, later layers overriding earlier
// ones per key:
//
//  1. Default permissions
//  2. repositories["owner/*"] (org-wide wildcard), if present
//  3. repositories["owner/repo"] (exact match), if present
//
// When requested is nil the full ceiling is returned with "none"
// entries removed — the largest set this repository may receive.
//
// When requested is non-nil it is validated entry by entry against the
// ceiling and only the validated subset is returned, never permissions
// the caller did not ask for. Requested "none" entries are dropped, the
// same treatment "none" gets in the ceiling. Validation failures reject
// the whole request: unknown names, invalid levels, permissions outside
// the ceiling, and write requests against a read ceiling each return
// their specific error.
//
// An empty result is an error in both modes. The GitHub token API
// grants the App's full permission set when the permissions field is
// absent, so resolution must never hand an empty map to the minter.
func (p *Policy) EffectivePermissions(owner, repo string, requested map[string]string) (PermissionMap, error) {
	ceiling := p.ceiling(owner, repo)

	if requested == nil {
		granted := make(PermissionMap, len(ceiling))
		for perm, level := range ceiling {
			if level == AccessNone {
				continue
			}
			granted[perm] = level
		}
		if len(granted) == 0 {
			return nil, ErrNoGrantablePermissions
		}
		return granted, nil
	}

	granted := make(PermissionMap, len(requested))
	for name, value := range requested {
		perm, err := ParsePermission(name)
		if err != nil {
			return nil, err
		}
		level, err := ParseAccessLevel(value)
		if err != nil {
			return nil, err
		}
		if level == AccessNone {
			continue
		}

		max, ok := ceiling[perm]
		if !ok || !max.Allows(level) {
			if ok && max == AccessRead && level == AccessWrite {
				return nil, &WriteNotAllowedError{Permission: perm}
			}
			return nil, &PermissionNotAllowedError{Permission: perm}
		}
		granted[perm] = level
	}
	if len(granted) == 0 {
		return nil, ErrNoGrantablePermissions
	}
	return granted, nil
}

// ceiling layers the default, wildcard, and exact-repository maps into
// the maximum permission set for owner/repo. Overrides replace
// individual keys, never the whole layer below them.
func (p *Policy) ceiling(owner, repo string) PermissionMap {
	result := p.Default.Clone()

	if wildcard, ok := p.Repositories[owner+"/*"]; ok {
		for perm, level := range wildcard {
			result[perm] = level
		}
	}
	if exact, ok := p.Repositories[owner+"/"+repo]; ok {
		for perm, level := range exact {
			result[perm] = level
		}
	}
	return result
}
