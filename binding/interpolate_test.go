package binding

import (
	"reflect"
	"testing"
)

func TestInterpolateRow(t *testing.T) {
	tbl := NewTable([]string{"Name", "Lot"}, [][]Value{{Text("Pump"), Number(42)}})
	row := tbl.Row(0)

	got := Interpolate("${Name} / lot ${Lot}", row)
	if got != "Pump / lot 42" {
		t.Fatalf("unexpected interpolation: %s", got)
	}
	if got := Interpolate("[${Missing}]", row); got != "[]" {
		t.Fatalf("unknown column must degrade to empty, got %q", got)
	}
	if got := Interpolate("plain", row); got != "plain" {
		t.Fatalf("plain text changed: %q", got)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("${A} ${ B } ${A}")
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("placeholders = %v", got)
	}
}
