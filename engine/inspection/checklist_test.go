package inspection

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChecklist_AttachesSatellites(t *testing.T) {
	in := one(t, `{"id":"A","brake":"Pass","tire":"Fail","tireR":"worn","tireP":"http://x/t.jpg",
		"lampR":"orphan remark","CHECKR":"x","horn":"N/A","hornP":"not-a-url","_id":"1"}`)
	got := Checklist(in)
	want := []Item{
		{FieldKey: "brake", Value: "Pass", Compliant: true},
		{FieldKey: "tire", Value: "Fail", RemarkKey: "tireR", PhotoKey: "tireP", Remark: "worn", Photo: "http://x/t.jpg"},
		{FieldKey: "lampR", Value: "orphan remark"},
		{FieldKey: "CHECKR", Value: "x"},
		{FieldKey: "horn", Value: "N/A", PhotoKey: "hornP", Compliant: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("checklist mismatch (-want +got):\n%s", diff)
	}
}

func TestChecklist_NonStringValuesAreCompliant(t *testing.T) {
	got := Checklist(one(t, `{"pressure":32,"ok":false}`))
	if len(got) != 2 || !got[0].Compliant || !got[1].Compliant {
		t.Fatalf("unexpected: %+v", got)
	}
	if got[0].Value != json.Number("32") {
		t.Fatalf("expected json.Number value, got %#v", got[0].Value)
	}
}

func TestChecklist_ChainedSuffix(t *testing.T) {
	// "aRR" would hang off "aR", but "aR" is already a satellite of "a".
	got := Checklist(one(t, `{"a":"Pass","aR":"note","aRR":"deep"}`))
	if len(got) != 2 || got[0].FieldKey != "a" || got[0].Remark != "note" || got[1].FieldKey != "aRR" {
		t.Fatalf("unexpected: %+v", got)
	}
	if Checklist(nil) != nil {
		t.Fatal("nil inspection should give nil checklist")
	}
}
