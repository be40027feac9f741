package skeleton

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/matzehuels/ndskl/pkg/ragged"
)

func TestFlattenOffsets(t *testing.T) {
	l := Flatten(build(t))

	tests := []struct {
		name    string
		counts  []int64
		offsets []int64
		want    []int64
		wantOff []int64
	}{
		{"connections", l.Connections.Counts, l.Connections.Offsets, []int64{2, 0, 1}, []int64{0, 2, 2}},
		{"samples", l.Samples.Counts, l.Samples.Offsets, []int64{3, 0}, []int64{0, 3}},
		{"sample fields", l.SampleFields.Counts, l.SampleFields.Offsets, []int64{3, 0}, []int64{0, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.counts, tt.want) {
				t.Errorf("counts = %v, want %v", tt.counts, tt.want)
			}
			if !reflect.DeepEqual(tt.offsets, tt.wantOff) {
				t.Errorf("offsets = %v, want %v", tt.offsets, tt.wantOff)
			}
		})
	}

	if err := l.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	sk := build(t)
	l := Flatten(sk)

	for i := 0; i < sk.NumCriticalPoints(); i++ {
		if got, want := l.ConnectionsOf(i), sk.Connections(i); !reflect.DeepEqual(got, want) {
			t.Errorf("ConnectionsOf(%d) = %v, want %v", i, got, want)
		}
	}
	for j := 0; j < sk.NumFilaments(); j++ {
		if got, want := l.SamplesOf(j), sk.Fils.Samples.Row(j); !reflect.DeepEqual(got, want) {
			t.Errorf("SamplesOf(%d) = %v, want %v", j, got, want)
		}
	}

	f := l.SampleFields
	start, n := f.Offsets[0]*int64(f.NumFields), f.Counts[0]*int64(f.NumFields)
	if got := f.Values[start : start+n]; !reflect.DeepEqual(got, []float64{0.1, 0.2, 0.3}) {
		t.Errorf("sample fields of filament 0 = %v", got)
	}
}

func TestFlattenCountConservation(t *testing.T) {
	sk := build(t)
	l := Flatten(sk)

	var sum int64
	for _, c := range l.Connections.Counts {
		sum += c
	}
	if sum != int64(len(l.Connections.Filament)) || sum != sk.NumConnections() {
		t.Errorf("connection counts sum to %d, flat holds %d", sum, len(l.Connections.Filament))
	}

	sum = 0
	for _, c := range l.Samples.Counts {
		sum += c
	}
	if sum*int64(l.Samples.Dims) != int64(len(l.Samples.Coords)) {
		t.Errorf("sample counts sum to %d, flat holds %d values", sum, len(l.Samples.Coords))
	}
}

func TestFlattenDoesNotAlias(t *testing.T) {
	sk := build(t)
	l := Flatten(sk)

	sk.Points.Filament.Values[0] = 42
	sk.Fils.Samples.Values[0] = 42
	sk.FilamentFields.Values[0] = 42

	if l.Connections.Filament[0] == 42 {
		t.Error("layout aliases connection storage")
	}
	if l.Samples.Coords[0] == 42 {
		t.Error("layout aliases sample storage")
	}
	if l.SampleFields.Values[0] == 42 {
		t.Error("layout aliases field storage")
	}
}

func TestFlattenIdempotent(t *testing.T) {
	sk := build(t)
	if a, b := Flatten(sk), Flatten(sk); !reflect.DeepEqual(a, b) {
		t.Error("Flatten is not deterministic")
	}
}

func TestFlattenNoFilamentFields(t *testing.T) {
	sk := build(t)
	sk.FilamentFields = NewFieldTable(nil, 0)
	for i := 0; i < 3; i++ {
		if err := sk.FilamentFields.Append(nil); err != nil {
			t.Fatal(err)
		}
	}

	l := Flatten(sk)
	if l.SampleFields.NumFields != 0 || len(l.SampleFields.Values) != 0 {
		t.Errorf("sample fields = %d fields, %d values", l.SampleFields.NumFields, len(l.SampleFields.Values))
	}
	if err := l.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLayoutValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layout)
	}{
		{"mismatched connection arrays", func(l *Layout) { l.Connections.OtherCP = l.Connections.OtherCP[:1] }},
		{"bad connection offset", func(l *Layout) { l.Connections.Offsets[1] = 1 }},
		{"sample counts exceed coords", func(l *Layout) { l.Samples.Counts[1] = 1 }},
		{"sample field row count", func(l *Layout) { l.SampleFields.Counts = l.SampleFields.Counts[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Flatten(build(t))
			tt.mutate(l)
			if err := l.Validate(); !stderrors.Is(err, ragged.ErrInconsistent) {
				t.Errorf("Validate() = %v, want ErrInconsistent", err)
			}
		})
	}
}
