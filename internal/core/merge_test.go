package core

import (
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing RecordCollection
		incoming RecordCollection
		want     RecordCollection
	}{
		{
			name:     "incoming wins on shared key",
			existing: RecordCollection{{ScanCode: "A", Sr: 1}},
			incoming: RecordCollection{{ScanCode: "A", Sr: 2}, {ScanCode: "B", Sr: 3}},
			want:     RecordCollection{{ScanCode: "A", Sr: 2}, {ScanCode: "B", Sr: 3}},
		},
		{
			name:     "both empty",
			existing: nil,
			incoming: RecordCollection{},
			want:     RecordCollection{},
		},
		{
			name:     "empty existing",
			existing: nil,
			incoming: RecordCollection{{ScanCode: "X", Sr: 9}},
			want:     RecordCollection{{ScanCode: "X", Sr: 9}},
		},
		{
			name:     "empty incoming",
			existing: RecordCollection{{ScanCode: "X", Sr: 9}, {ScanCode: "Y", Sr: 10}},
			incoming: nil,
			want:     RecordCollection{{ScanCode: "X", Sr: 9}, {ScanCode: "Y", Sr: 10}},
		},
		{
			name:     "duplicates within one input collapse to last",
			existing: nil,
			incoming: RecordCollection{{ScanCode: "A", Sr: 1}, {ScanCode: "B", Sr: 2}, {ScanCode: "A", Sr: 3}},
			want:     RecordCollection{{ScanCode: "A", Sr: 3}, {ScanCode: "B", Sr: 2}},
		},
		{
			name:     "existing duplicates then incoming override",
			existing: RecordCollection{{ScanCode: "A", Sr: 1}, {ScanCode: "A", Sr: 2}, {ScanCode: "C", Sr: 4}},
			incoming: RecordCollection{{ScanCode: "C", Sr: 5}, {ScanCode: "D", Sr: 6}},
			want:     RecordCollection{{ScanCode: "A", Sr: 2}, {ScanCode: "C", Sr: 5}, {ScanCode: "D", Sr: 6}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.existing, tt.incoming)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := RecordCollection{{ScanCode: "A", Sr: 1}}
	incoming := RecordCollection{{ScanCode: "A", Sr: 2}}

	_ = Merge(existing, incoming)

	if existing[0].Sr != 1 {
		t.Errorf("existing[0].Sr = %d, want 1", existing[0].Sr)
	}
	if incoming[0].Sr != 2 {
		t.Errorf("incoming[0].Sr = %d, want 2", incoming[0].Sr)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	existing := RecordCollection{{ScanCode: "B", Sr: 1}, {ScanCode: "A", Sr: 2}}
	incoming := RecordCollection{{ScanCode: "C", Sr: 3}, {ScanCode: "B", Sr: 4}}

	first := Merge(existing, incoming)
	for i := 0; i < 20; i++ {
		if got := Merge(existing, incoming); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Merge() = %+v, want %+v", i, got, first)
		}
	}

	want := []string{"B", "A", "C"}
	if got := first.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestRecordCollection_Dedup(t *testing.T) {
	c := RecordCollection{{ScanCode: "A", Sr: 1}, {ScanCode: "A", Sr: 7}}
	got := c.Dedup()
	if len(got) != 1 || got[0].Sr != 7 {
		t.Errorf("Dedup() = %+v, want single record with Sr 7", got)
	}
	if !got.Contains("A") || got.Contains("B") {
		t.Errorf("Contains mismatch for %+v", got)
	}
}
