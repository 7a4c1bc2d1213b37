package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	if Normalize(" A1 ") != "a1" || Normalize("a1") != "a1" {
		t.Fatalf("expected a1, got %q / %q", Normalize(" A1 "), Normalize("a1"))
	}
	if Normalize("") != "" {
		t.Fatal("empty input should normalize to empty")
	}
	if Normalize("\t\n ") != "" {
		t.Fatal("whitespace-only input should normalize to empty")
	}
}

func TestIsMetaKey(t *testing.T) {
	for _, k := range []string{"id", "ID", "Date", "inspector", "MILEAGE", "remark", "lat", "lng", "_id", "Type", "db", "collection"} {
		if !IsMetaKey(k) {
			t.Errorf("%q should be meta", k)
		}
	}
	for _, k := range []string{"brake", "tireR", "tireP", "remarks", "note"} {
		if IsMetaKey(k) {
			t.Errorf("%q should not be meta", k)
		}
	}
}

func TestVehicleDecode_FlexibleIDs(t *testing.T) {
	data := `[{"_id":"x1","id":" AB-12 ","owner":"OPS","ownerName":"Somchai","site":"BKK","type":"car"},
	          {"id":4411,"owner":null},
	          {"owner":"NOID"}]`
	var vs []Vehicle
	if err := json.Unmarshal([]byte(data), &vs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vs) != 3 {
		t.Fatalf("expected 3 vehicles, got %d", len(vs))
	}
	if vs[0].Key() != "ab-12" || vs[0].OwnerName != "Somchai" {
		t.Fatalf("unexpected first vehicle: %+v", vs[0])
	}
	if vs[1].ID != "4411" || vs[1].Owner != "" {
		t.Fatalf("numeric id should decode as text: %+v", vs[1])
	}
	if vs[2].Key() != "" {
		t.Fatalf("missing id should normalize to empty, got %q", vs[2].Key())
	}
}

func TestParseStatusFilter(t *testing.T) {
	cases := map[string]StatusFilter{
		"":           FilterAll,
		"all":        FilterAll,
		"Defect":     FilterDefect,
		"normal":     FilterNormal,
		"notchecked": FilterNotChecked,
		"notChecked": FilterNotChecked,
	}
	for in, want := range cases {
		got, err := ParseStatusFilter(in)
		if err != nil || got != want {
			t.Errorf("ParseStatusFilter(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseStatusFilter("broken"); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}
