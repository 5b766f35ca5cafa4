package policy

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// document is the on-disk YAML shape of a policy file
type document struct {
	Default      ruleSet            `yaml:"default"`
	Repositories map[string]ruleSet `yaml:"repositories"`
}

// ruleSet is one permissions block in the document. The Permissions
// field distinguishes "absent" (nil) from "present but empty" so that
// validation can require the block to exist.
type ruleSet struct {
	Permissions map[string]string `yaml:"permissions"`
}

// Policy is a validated, immutable permission policy. All maps are
// fully typed; no unknown permission names or access levels survive
// validation.
type Policy struct {
	// Default is the base permission layer applied to every repository
	Default PermissionMap

	// Repositories maps "owner/repo" and "owner/*" keys to override
	// layers. Keys are matched case-sensitively and never globbed
	// beyond the single trailing "*" wildcard form.
	Repositories map[string]PermissionMap
}

// Parse validates a raw policy document and converts it into a Policy.
// Any validation failure aborts the whole parse; no partial policy is
// ever returned.
func Parse(data []byte) (*Policy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: parsing document: %w", err)
	}

	if doc.Default.Permissions == nil {
		return nil, ErrMissingDefaultPermissions
	}

	defaults, err := parsePermissionMap(doc.Default.Permissions)
	if err != nil {
		return nil, fmt.Errorf("policy: validating default.permissions: %w", err)
	}

	repositories := make(map[string]PermissionMap, len(doc.Repositories))
	for key, rules := range doc.Repositories {
		if rules.Permissions == nil {
			return nil, fmt.Errorf("policy: repository entry %q does not define permissions", key)
		}
		perms, err := parsePermissionMap(rules.Permissions)
		if err != nil {
			return nil, fmt.Errorf("policy: validating repositories[%q].permissions: %w", key, err)
		}
		repositories[key] = perms
	}

	return &Policy{
		Default:      defaults,
		Repositories: repositories,
	}, nil
}

// Loader reads and validates a policy file exactly once per process
// lifetime. The first Load wins; every later call returns the same
// policy (or the same error) without re-reading or re-validating.
// Safe for concurrent use: cold-start requests racing on the first
// load are serialized by the once guard.
type Loader struct {
	path string

	once   sync.Once
	policy *Policy
	err    error
}

// NewLoader creates a Loader for the policy file at path. The file is
// not touched until the first Load call.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load returns the memoized policy, reading and validating the file on
// the first call
func (l *Loader) Load() (*Policy, error) {
	l.once.Do(func() {
		data, err := os.ReadFile(l.path)
		if err != nil {
			l.err = fmt.Errorf("policy: reading %s: %w", l.path, err)
			return
		}
		l.policy, l.err = Parse(data)
	})
	return l.policy, l.err
}
