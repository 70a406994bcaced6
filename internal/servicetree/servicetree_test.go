package servicetree

import (
	"testing"

	"github.com/marmos91/busybus/internal/bbuserr"
)

func TestInsertLocateRoundTrip(t *testing.T) {
	tr := New()
	rec := &Record{Kind: Local}
	if err := tr.Insert("bbus.bbusd.echo", rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok := tr.Locate("bbus.bbusd.echo")
	if !ok || got != rec {
		t.Fatalf("Locate returned %v, %v", got, ok)
	}
}

func TestLocateMissingReturnsFalse(t *testing.T) {
	tr := New()
	if _, ok := tr.Locate("no.such.method"); ok {
		t.Fatalf("expected miss")
	}
}

func TestLocateMalformedPathReturnsFalse(t *testing.T) {
	tr := New()
	cases := []string{"", ".leading", "trailing.", "a..b"}
	for _, p := range cases {
		if _, ok := tr.Locate(p); ok {
			t.Fatalf("expected miss for path %q", p)
		}
	}
}

func TestInsertDuplicateMethodFails(t *testing.T) {
	tr := New()
	if err := tr.Insert("svc.method", &Record{Kind: Local}); err != nil {
		t.Fatal(err)
	}
	err := tr.Insert("svc.method", &Record{Kind: Local})
	if !bbuserr.Is(err, bbuserr.MRegErr) {
		t.Fatalf("expected MRegErr, got %v", err)
	}
}

func TestInsertNameCollidesWithSubserviceFails(t *testing.T) {
	tr := New()
	if err := tr.Insert("svc.sub.method", &Record{Kind: Local}); err != nil {
		t.Fatal(err)
	}
	// "sub" is already a subservice under svc; inserting a method named
	// "sub" directly under svc must fail without disturbing the tree.
	err := tr.Insert("svc.sub", &Record{Kind: Local})
	if !bbuserr.Is(err, bbuserr.MRegErr) {
		t.Fatalf("expected MRegErr, got %v", err)
	}
	if _, ok := tr.Locate("svc.sub.method"); !ok {
		t.Fatalf("existing method should be unaffected by failed insert")
	}
}

func TestInsertMethodCollidesWithSubserviceFails(t *testing.T) {
	tr := New()
	if err := tr.Insert("svc.leaf", &Record{Kind: Local}); err != nil {
		t.Fatal(err)
	}
	// "leaf" is already a method under svc; trying to grow a subservice
	// tree under that same name must fail.
	err := tr.Insert("svc.leaf.deeper", &Record{Kind: Local})
	if !bbuserr.Is(err, bbuserr.MRegErr) {
		t.Fatalf("expected MRegErr, got %v", err)
	}
}

func TestRemoveProviderDeletesOwnedRemoteRecords(t *testing.T) {
	tr := New()
	owner1 := new(int)
	owner2 := new(int)

	if err := tr.Insert("svc.a", &Record{Kind: Remote, Owner: owner1}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert("svc.b", &Record{Kind: Remote, Owner: owner2}); err != nil {
		t.Fatal(err)
	}

	tr.RemoveProvider(owner1)

	if _, ok := tr.Locate("svc.a"); ok {
		t.Fatalf("expected svc.a removed")
	}
	if _, ok := tr.Locate("svc.b"); !ok {
		t.Fatalf("expected svc.b to survive")
	}
}

func TestRemoveProviderCollapsesEmptyInteriorNodes(t *testing.T) {
	tr := New()
	owner := new(int)
	if err := tr.Insert("svc.sub.method", &Record{Kind: Remote, Owner: owner}); err != nil {
		t.Fatal(err)
	}

	tr.RemoveProvider(owner)

	if !tr.root.empty() {
		t.Fatalf("expected root to collapse to empty, children=%v methods=%v",
			tr.root.children, tr.root.methods)
	}
}

func TestRemoveProviderLeavesLocalRecordsAlone(t *testing.T) {
	tr := New()
	if err := tr.Insert("bbus.bbusd.echo", &Record{Kind: Local}); err != nil {
		t.Fatal(err)
	}
	tr.RemoveProvider(new(int))
	if _, ok := tr.Locate("bbus.bbusd.echo"); !ok {
		t.Fatalf("local record should never be removed by RemoveProvider")
	}
}
