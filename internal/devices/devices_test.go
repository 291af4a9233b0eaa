package devices

import (
	"reflect"
	"testing"
)

func TestMerge_KeepsLocalFolderAndInsertsNewDevices(t *testing.T) {
	local := Map{"m1": {ID: "m1", Name: "Old", Vendor: "Haas", Folder: "/data/m1"}}
	incoming := []Device{
		{ID: "m1", Name: "Lathe", Vendor: "Mazak", Folder: "/other"},
		{ID: "m2", Name: "Mill", Vendor: "Fanuc", Folder: "/data/m2"},
	}

	got := Merge(local, incoming)

	if got["m1"].Folder != "/data/m1" {
		t.Fatalf("m1 folder = %q, want /data/m1", got["m1"].Folder)
	}
	if got["m1"].Name != "Lathe" || got["m1"].Vendor != "Mazak" {
		t.Fatalf("m1 = %#v, want name/vendor refreshed", got["m1"])
	}
	if got["m2"].Folder != "/data/m2" {
		t.Fatalf("m2 folder = %q, want /data/m2", got["m2"].Folder)
	}
	if local["m1"].Name != "Old" {
		t.Fatalf("Merge mutated its input: %#v", local["m1"])
	}
}

func TestMerge_FillsEmptyFolderFromServer(t *testing.T) {
	local := Map{"m1": {ID: "m1", Name: "Lathe"}}
	got := Merge(local, []Device{{ID: "m1", Name: "Lathe", Folder: "/srv/m1"}})
	if got["m1"].Folder != "/srv/m1" {
		t.Fatalf("folder = %q, want /srv/m1", got["m1"].Folder)
	}

	got = Merge(got, []Device{{ID: "m1", Name: "Lathe", Folder: ""}})
	if got["m1"].Folder != "/srv/m1" {
		t.Fatalf("empty server folder cleared local value: %q", got["m1"].Folder)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	incoming := []Device{
		{ID: "m1", Name: "Lathe", Vendor: "Mazak", Folder: "/a"},
		{ID: "m2", Name: "Mill", Vendor: "Fanuc"},
	}
	first := Merge(nil, incoming)
	second := Merge(first, incoming)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second merge changed map:\nfirst  %#v\nsecond %#v", first, second)
	}
	if len(second) != 2 {
		t.Fatalf("len = %d, want 2", len(second))
	}
}

func TestMerge_SkipsBlankIDs(t *testing.T) {
	got := Merge(nil, []Device{{ID: "  ", Name: "ghost"}})
	if len(got) != 0 {
		t.Fatalf("blank id inserted: %#v", got)
	}
}

func TestMap_Folder(t *testing.T) {
	m := Map{
		"a": {Folder: "/x"},
		"b": {Folder: "   "},
	}
	tests := []struct {
		id     string
		want   string
		wantOK bool
	}{
		{"a", "/x", true},
		{"b", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := m.Folder(tt.id)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Folder(%q) = %q, %v; want %q, %v", tt.id, got, ok, tt.want, tt.wantOK)
		}
	}
}
