package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const validDocument = `
default:
  permissions:
    contents: write
    metadata: read
repositories:
  "acme/*":
    permissions:
      contents: read
  "acme/widgets":
    permissions:
      contents: write
`

func TestParse(t *testing.T) {
	policy, err := Parse([]byte(validDocument))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	wantDefault := PermissionMap{
		PermissionContents: AccessWrite,
		PermissionMetadata: AccessRead,
	}
	if diff := cmp.Diff(wantDefault, policy.Default); diff != "" {
		t.Errorf("default permissions mismatch (-want +got):\n%s", diff)
	}

	wantRepos := map[string]PermissionMap{
		"acme/*":       {PermissionContents: AccessRead},
		"acme/widgets": {PermissionContents: AccessWrite},
	}
	if diff := cmp.Diff(wantRepos, policy.Repositories); diff != "" {
		t.Errorf("repository overrides mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMissingDefaultPermissions(t *testing.T) {
	docs := []string{
		``,
		`repositories: {}`,
		`default: {}`,
	}
	for _, doc := range docs {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrMissingDefaultPermissions) {
			t.Errorf("Parse(%q) error = %v, want ErrMissingDefaultPermissions", doc, err)
		}
	}
}

func TestParseUnknownPermissionName(t *testing.T) {
	doc := `
default:
  permissions:
    secrets: read
`
	_, err := Parse([]byte(doc))
	var unknownErr *UnknownPermissionError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Parse error = %v, want UnknownPermissionError", err)
	}
	if unknownErr.Name != "secrets" {
		t.Errorf("unknown permission name = %q, want %q", unknownErr.Name, "secrets")
	}
}

func TestParseInvalidAccessLevel(t *testing.T) {
	doc := `
default:
  permissions:
    contents: admin
`
	_, err := Parse([]byte(doc))
	var levelErr *InvalidAccessLevelError
	if !errors.As(err, &levelErr) {
		t.Fatalf("Parse error = %v, want InvalidAccessLevelError", err)
	}
	if levelErr.Value != "admin" {
		t.Errorf("invalid access level = %q, want %q", levelErr.Value, "admin")
	}
}

func TestParseRepositoryEntryWithoutPermissions(t *testing.T) {
	doc := `
default:
  permissions:
    contents: read
repositories:
  "acme/widgets": {}
`
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "acme/widgets") {
		t.Fatalf("Parse error = %v, want error naming the repository entry", err)
	}
}

func TestParseRejectsWholeDocumentOnAnyFailure(t *testing.T) {
	// A bad repository entry must abort the load even though the
	// default section is valid on its own.
	doc := `
default:
  permissions:
    contents: read
repositories:
  "acme/widgets":
    permissions:
      contents: sudo
`
	policy, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("Parse succeeded, want validation error")
	}
	if policy != nil {
		t.Errorf("Parse returned partial policy %v alongside error", policy)
	}
}

func TestLoaderMemoizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(validDocument), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	first, err := loader.Load()
	if err != nil {
		t.Fatalf("first Load returned error: %v", err)
	}

	// Rewrite the backing file with garbage: a memoized loader must
	// not observe the change.
	if err := os.WriteFile(path, []byte("default: {}"), 0o600); err != nil {
		t.Fatal(err)
	}

	second, err := loader.Load()
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if first != second {
		t.Error("Load returned a different policy instance on the second call")
	}
}

func TestLoaderMemoizesError(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	_, firstErr := loader.Load()
	if firstErr == nil {
		t.Fatal("Load of missing file succeeded")
	}
	_, secondErr := loader.Load()
	if firstErr != secondErr {
		t.Error("Load returned a different error instance on the second call")
	}
}

func TestAccessLevelAllows(t *testing.T) {
	cases := []struct {
		ceiling   AccessLevel
		requested AccessLevel
		want      bool
	}{
		{AccessWrite, AccessWrite, true},
		{AccessWrite, AccessRead, true},
		{AccessRead, AccessRead, true},
		{AccessRead, AccessWrite, false},
		{AccessNone, AccessRead, false},
		{AccessNone, AccessNone, false},
	}
	for _, tc := range cases {
		if got := tc.ceiling.Allows(tc.requested); got != tc.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tc.ceiling, tc.requested, got, tc.want)
		}
	}
}

func TestParsePermission(t *testing.T) {
	if _, err := ParsePermission("contents"); err != nil {
		t.Errorf("ParsePermission(contents) returned error: %v", err)
	}
	if _, err := ParsePermission("administration"); err == nil {
		t.Error("ParsePermission(administration) succeeded, want error")
	}
}
