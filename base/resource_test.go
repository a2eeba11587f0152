package base

import "testing"

func TestGetResourceInternsByNameAndType(t *testing.T) {
	a := GetResource("R", EntryTypeIn)
	b := GetResource("R", EntryTypeIn)
	if a != b {
		t.Fatal("expected two calls for the same (name, type) to return the same interned pointer")
	}
}

func TestGetResourceDistinguishesEntryType(t *testing.T) {
	in := GetResource("R", EntryTypeIn)
	out := GetResource("R", EntryTypeOut)
	if in == out {
		t.Fatal("expected distinct ResourceWrappers for the same name under different EntryTypes")
	}
}

func TestResourceWrapperString(t *testing.T) {
	if got := GetResource("Orders.Create", EntryTypeIn).String(); got != "Orders.Create#IN" {
		t.Fatalf("unexpected String(): %q", got)
	}
	if got := GetResource("Orders.Create", EntryTypeOut).String(); got != "Orders.Create#OUT" {
		t.Fatalf("unexpected String(): %q", got)
	}
}
