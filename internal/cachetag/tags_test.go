package cachetag

import "testing"

func TestGlobalTag(t *testing.T) {
	if got := GlobalTag(KindUsers); got != "global:users" {
		t.Fatalf("expected global:users, got %q", got)
	}
	if got := GlobalTag(KindJobListings); got != "global:jobListings" {
		t.Fatalf("expected global:jobListings, got %q", got)
	}
}

func TestIDTag(t *testing.T) {
	got, err := IDTag(KindUsers, "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "id:users-user_1" {
		t.Fatalf("expected id:users-user_1, got %q", got)
	}
}

func TestIDTagEmptyID(t *testing.T) {
	if _, err := IDTag(KindUsers, ""); err != ErrEmptyID {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestScopedTag(t *testing.T) {
	got, err := ScopedTag(KindJobListings, KindOrganizations, "org_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "organizations:org_1-jobListings" {
		t.Fatalf("expected organizations:org_1-jobListings, got %q", got)
	}
}

func TestScopedTagEmptyParentID(t *testing.T) {
	if _, err := ScopedTag(KindJobListings, KindOrganizations, ""); err != ErrEmptyID {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

// Tags for different kinds, ids, and scopes must never collide.
func TestTagNamespacesDoNotCollide(t *testing.T) {
	seen := make(map[string]string)
	record := func(tag, desc string) {
		if prev, ok := seen[tag]; ok {
			t.Fatalf("tag collision: %q produced by both %s and %s", tag, prev, desc)
		}
		seen[tag] = desc
	}

	for _, kind := range Kinds {
		record(GlobalTag(kind), "global "+string(kind))

		idTag, err := IDTag(kind, "x1")
		if err != nil {
			t.Fatalf("IDTag(%s): %v", kind, err)
		}
		record(idTag, "id "+string(kind))
	}

	scoped, err := ScopedTag(KindJobListings, KindOrganizations, "x1")
	if err != nil {
		t.Fatalf("ScopedTag: %v", err)
	}
	record(scoped, "scoped jobListings under organizations")

	// Same parent id, different child kind
	scoped2, err := ScopedTag(KindOrganizationUserSettings, KindOrganizations, "x1")
	if err != nil {
		t.Fatalf("ScopedTag: %v", err)
	}
	record(scoped2, "scoped organizationUserSettings under organizations")
}
