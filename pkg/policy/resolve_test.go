package policy

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testPolicy builds the layered policy used across the resolution tests:
// a write/read default, an org-wide downgrade for acme, and an exact
// override restoring write for acme/widgets.
func testPolicy() *Policy {
	return &Policy{
		Default: PermissionMap{
			PermissionContents: AccessWrite,
			PermissionMetadata: AccessRead,
		},
		Repositories: map[string]PermissionMap{
			"acme/*": {
				PermissionContents: AccessRead,
			},
			"acme/widgets": {
				PermissionContents: AccessWrite,
			},
		},
	}
}

func TestEffectivePermissionsLayering(t *testing.T) {
	cases := []struct {
		name  string
		owner string
		repo  string
		want  PermissionMap
	}{
		{
			// No wildcard or exact entry: the default passes through.
			name:  "default only",
			owner: "globex",
			repo:  "anything",
			want: PermissionMap{
				PermissionContents: AccessWrite,
				PermissionMetadata: AccessRead,
			},
		},
		{
			// The org wildcard downgrades contents; metadata is still
			// inherited from the default.
			name:  "wildcard downgrade",
			owner: "acme",
			repo:  "gadgets",
			want: PermissionMap{
				PermissionContents: AccessRead,
				PermissionMetadata: AccessRead,
			},
		},
		{
			// The exact repository entry wins over the wildcard.
			name:  "exact override wins",
			owner: "acme",
			repo:  "widgets",
			want: PermissionMap{
				PermissionContents: AccessWrite,
				PermissionMetadata: AccessRead,
			},
		},
	}

	policy := testPolicy()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := policy.EffectivePermissions(tc.owner, tc.repo, nil)
			if err != nil {
				t.Fatalf("EffectivePermissions returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("effective permissions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEffectivePermissionsDropsNoneEntries(t *testing.T) {
	policy := &Policy{
		Default: PermissionMap{
			PermissionContents: AccessRead,
			PermissionIssues:   AccessNone,
		},
	}
	got, err := policy.EffectivePermissions("acme", "widgets", nil)
	if err != nil {
		t.Fatalf("EffectivePermissions returned error: %v", err)
	}
	want := PermissionMap{PermissionContents: AccessRead}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("effective permissions mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectivePermissionsEmptyGrantFails(t *testing.T) {
	// An omitted permissions field in a GitHub token request means
	// "everything the App holds", so an empty resolution must error
	// rather than flow into a mint.
	t.Run("all-none ceiling", func(t *testing.T) {
		restricted := &Policy{
			Default: PermissionMap{PermissionContents: AccessNone},
		}
		_, err := restricted.EffectivePermissions("acme", "widgets", nil)
		if !errors.Is(err, ErrNoGrantablePermissions) {
			t.Fatalf("error = %v, want ErrNoGrantablePermissions", err)
		}
	})

	t.Run("empty request map", func(t *testing.T) {
		_, err := testPolicy().EffectivePermissions("acme", "widgets", map[string]string{})
		if !errors.Is(err, ErrNoGrantablePermissions) {
			t.Fatalf("error = %v, want ErrNoGrantablePermissions", err)
		}
	})

	t.Run("all entries requested as none", func(t *testing.T) {
		_, err := testPolicy().EffectivePermissions("acme", "widgets", map[string]string{
			"contents": "none",
		})
		if !errors.Is(err, ErrNoGrantablePermissions) {
			t.Fatalf("error = %v, want ErrNoGrantablePermissions", err)
		}
	})
}

func TestEffectivePermissionsDropsRequestedNone(t *testing.T) {
	got, err := testPolicy().EffectivePermissions("acme", "widgets", map[string]string{
		"contents": "none",
		"metadata": "read",
	})
	if err != nil {
		t.Fatalf("EffectivePermissions returned error: %v", err)
	}
	want := PermissionMap{PermissionMetadata: AccessRead}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("validated permissions mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectivePermissionsExactKeyIsCaseSensitive(t *testing.T) {
	policy := testPolicy()
	got, err := policy.EffectivePermissions("Acme", "Widgets", nil)
	if err != nil {
		t.Fatalf("EffectivePermissions returned error: %v", err)
	}
	// Neither "Acme/*" nor "Acme/Widgets" exists as a key, so only the
	// default layer applies.
	want := PermissionMap{
		PermissionContents: AccessWrite,
		PermissionMetadata: AccessRead,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("effective permissions mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectivePermissionsRequestedSubset(t *testing.T) {
	policy := testPolicy()

	// Requesting less than the ceiling succeeds and returns only the
	// requested entries.
	got, err := policy.EffectivePermissions("acme", "widgets", map[string]string{
		"contents": "read",
	})
	if err != nil {
		t.Fatalf("EffectivePermissions returned error: %v", err)
	}
	want := PermissionMap{PermissionContents: AccessRead}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("validated permissions mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectivePermissionsRequestErrors(t *testing.T) {
	policy := testPolicy()

	t.Run("unknown permission name", func(t *testing.T) {
		_, err := policy.EffectivePermissions("acme", "widgets", map[string]string{
			"sorcery": "read",
		})
		var unknownErr *UnknownPermissionError
		if !errors.As(err, &unknownErr) {
			t.Fatalf("error = %v, want UnknownPermissionError", err)
		}
	})

	t.Run("invalid access level", func(t *testing.T) {
		_, err := policy.EffectivePermissions("acme", "widgets", map[string]string{
			"contents": "admin",
		})
		var levelErr *InvalidAccessLevelError
		if !errors.As(err, &levelErr) {
			t.Fatalf("error = %v, want InvalidAccessLevelError", err)
		}
	})

	t.Run("permission outside ceiling", func(t *testing.T) {
		_, err := policy.EffectivePermissions("acme", "widgets", map[string]string{
			"issues": "read",
		})
		var notAllowedErr *PermissionNotAllowedError
		if !errors.As(err, &notAllowedErr) {
			t.Fatalf("error = %v, want PermissionNotAllowedError", err)
		}
		if notAllowedErr.Permission != PermissionIssues {
			t.Errorf("rejected permission = %q, want issues", notAllowedErr.Permission)
		}
	})

	t.Run("permission with none ceiling", func(t *testing.T) {
		restricted := &Policy{
			Default: PermissionMap{PermissionContents: AccessNone},
		}
		_, err := restricted.EffectivePermissions("acme", "widgets", map[string]string{
			"contents": "read",
		})
		var notAllowedErr *PermissionNotAllowedError
		if !errors.As(err, &notAllowedErr) {
			t.Fatalf("error = %v, want PermissionNotAllowedError", err)
		}
	})

	t.Run("write against read ceiling", func(t *testing.T) {
		_, err := policy.EffectivePermissions("acme", "gadgets", map[string]string{
			"contents": "write",
		})
		var writeErr *WriteNotAllowedError
		if !errors.As(err, &writeErr) {
			t.Fatalf("error = %v, want WriteNotAllowedError", err)
		}
	})

	t.Run("read against write ceiling succeeds", func(t *testing.T) {
		got, err := policy.EffectivePermissions("acme", "widgets", map[string]string{
			"contents": "read",
			"metadata": "read",
		})
		if err != nil {
			t.Fatalf("EffectivePermissions returned error: %v", err)
		}
		want := PermissionMap{
			PermissionContents: AccessRead,
			PermissionMetadata: AccessRead,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("validated permissions mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestEffectivePermissionsNeverExceedsRequest(t *testing.T) {
	policy := testPolicy()
	got, err := policy.EffectivePermissions("acme", "widgets", map[string]string{
		"metadata": "read",
	})
	if err != nil {
		t.Fatalf("EffectivePermissions returned error: %v", err)
	}
	if _, ok := got[PermissionContents]; ok {
		t.Error("result includes contents, which the caller did not request")
	}
}

func TestPermissionMapWire(t *testing.T) {
	m := PermissionMap{
		PermissionContents: AccessWrite,
		PermissionMetadata: AccessRead,
	}
	want := map[string]string{"contents": "write", "metadata": "read"}
	if diff := cmp.Diff(want, m.Wire()); diff != "" {
		t.Errorf("wire form mismatch (-want +got):\n%s", diff)
	}
}
