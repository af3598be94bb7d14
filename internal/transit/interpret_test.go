package transit

import (
	"reflect"
	"testing"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		path []Node
		want []Step
	}{
		{
			name: "single node",
			path: []Node{{"A", "red"}},
			want: nil,
		},
		{
			name: "same line",
			path: []Node{{"A", "red"}, {"B", "red"}, {"C", "red"}},
			want: []Step{NewRide("A", "red"), NewRide("B", "red"), NewRide("C", "red")},
		},
		{
			name: "switch in the middle",
			path: []Node{{"A", "red"}, {"B", "red"}, {"B", "green"}, {"C", "green"}},
			want: []Step{
				NewRide("A", "red"),
				NewRide("B", "red"),
				NewSwitch("red", "green"),
				NewRide("C", "green"),
			},
		},
		{
			name: "cross line connection",
			path: []Node{{"A", "red"}, {"B", "red"}, {"C", "Braintree"}},
			want: []Step{
				NewRide("A", "red"),
				NewRide("B", "red"),
				NewEnsure("Braintree"),
				NewRide("C", "Braintree"),
			},
		},
		{
			name: "first pair at one station",
			path: []Node{{"A", StartLine}, {"A", "green"}, {"B", "green"}},
			want: []Step{NewRide("A", "green"), NewRide("B", "green")},
		},
		{
			name: "first pair crosses stations",
			path: []Node{{"A", "red"}, {"B", "blue"}},
			want: []Step{NewRide("A", "red"), NewEnsure("blue"), NewRide("B", "blue")},
		},
		{
			name: "trailing switch pruned",
			path: []Node{{"A", "red"}, {"B", "red"}, {"B", EndLine}},
			want: []Step{NewRide("A", "red"), NewRide("B", "red")},
		},
		{
			name: "synthetic endpoints on both ends",
			path: []Node{{"A", StartLine}, {"A", "red"}, {"B", "red"}, {"B", EndLine}},
			want: []Step{NewRide("A", "red"), NewRide("B", "red")},
		},
		{
			name: "start equals destination at transfer station",
			path: []Node{{"A", StartLine}, {"A", "red"}, {"A", EndLine}},
			want: []Step{NewRide("A", "red")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.path)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Interpret(%v)\n got  %v\n want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestInterpretNeverEndsOnTransfer(t *testing.T) {
	paths := [][]Node{
		{{"A", "red"}, {"A", "green"}},
		{{"A", "red"}, {"B", "red"}, {"B", "green"}},
		{{"A", StartLine}, {"A", "red"}, {"B", "red"}, {"B", EndLine}},
	}
	for _, path := range paths {
		steps := Interpret(path)
		if len(steps) == 0 {
			continue
		}
		if steps[0].Kind != StepRide {
			t.Errorf("Interpret(%v): first step %v, want ride", path, steps[0].Kind)
		}
		if last := steps[len(steps)-1]; last.Kind != StepRide {
			t.Errorf("Interpret(%v): last step %v, want ride", path, last.Kind)
		}
	}
}
