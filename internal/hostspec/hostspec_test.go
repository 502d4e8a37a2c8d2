package hostspec

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "no brackets",
			pattern: "foo",
			want:    []string{"foo"},
		},
		{
			name:    "simple range",
			pattern: "foo[1-3]",
			want:    []string{"foo1", "foo2", "foo3"},
		},
		{
			name:    "range with suffix",
			pattern: "web[1-3].example.com",
			want:    []string{"web1.example.com", "web2.example.com", "web3.example.com"},
		},
		{
			name:    "range crossing a digit boundary",
			pattern: "node[9-11]",
			want:    []string{"node9", "node10", "node11"},
		},
		{
			name:    "simple list",
			pattern: "foo-[bar,baz]",
			want:    []string{"foo-bar", "foo-baz"},
		},
		{
			name:    "list with suffix",
			pattern: "db-[east,west].prod",
			want:    []string{"db-east.prod", "db-west.prod"},
		},
		{
			name:    "list tokens may contain dashes and dots",
			pattern: "[a-1,b.2]",
			want:    []string{"a-1", "b.2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.pattern)
			if err != nil {
				t.Fatalf("Expand(%q) returned error: %v", tt.pattern, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestExpandFailures(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		cause   error
	}{
		{"missing close bracket", "foo[1-3", ErrUnbalancedBrackets},
		{"missing open bracket", "foo1-3]", ErrUnbalancedBrackets},
		{"close before open", "foo]1-3[", ErrUnbalancedBrackets},
		{"empty brackets", "foo[]", ErrAmbiguousExpansion},
		{"single token without comma or range", "foo[bar]", ErrAmbiguousExpansion},
		{"upper equals lower", "foo[3-3]", ErrInvalidRange},
		{"upper below lower", "foo[3-1]", ErrInvalidRange},
		{"two bracket expressions", "foo[1-2]bar[3-4]", ErrInvalidRange},
		{"invalid prefix characters", "f!oo[1-2]", ErrInvalidRange},
		{"two list expressions", "a[x,y]b[z,w]", ErrInvalidListExpansion},
		{"empty list token", "foo[bar,]", ErrInvalidListExpansion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.pattern)
			if err == nil {
				t.Fatalf("Expand(%q) = %v, want error", tt.pattern, got)
			}
			if !stderrors.Is(err, tt.cause) {
				t.Errorf("Expand(%q) error = %v, want cause %v", tt.pattern, err, tt.cause)
			}
			if errors.CategoryOf(err) != errors.HostSpec {
				t.Errorf("Expand(%q) category = %v, want host-spec", tt.pattern, errors.CategoryOf(err))
			}
		})
	}
}
