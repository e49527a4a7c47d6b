package dice_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/dungeonmaster/internal/dice"
)

func TestParse_Valid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		expr string
		want dice.Expr
		str  string
	}{
		{"1d6", dice.Expr{Count: 1, Sides: 6}, "1d6"},
		{"2d6+3", dice.Expr{Count: 2, Sides: 6, Modifier: 3}, "2d6+3"},
		{"4d8-1", dice.Expr{Count: 4, Sides: 8, Modifier: -1}, "4d8-1"},
		{"d20", dice.Expr{Count: 1, Sides: 20}, "1d20"},
		{"D6", dice.Expr{Count: 1, Sides: 6}, "1d6"},
		{" 2d10 + 5 ", dice.Expr{Count: 2, Sides: 10, Modifier: 5}, "2d10+5"},
		{"3d6+0", dice.Expr{Count: 3, Sides: 6}, "3d6"},
		{"1d20-1000", dice.Expr{Count: 1, Sides: 20, Modifier: -1000}, "1d20-1000"},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()
			got, err := dice.Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.expr, err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tc.expr, got, tc.want)
			}
			if got.String() != tc.str {
				t.Errorf("String() = %q, want %q", got.String(), tc.str)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()
	for _, expr := range []string{"", "6", "0d6", "2d0", "xd6", "2d", "1d6+", "1d6*2", "101d6", "1d1001",
		"1d6+1001", "1d6-1001", "1d6+99999999999999999999999"} {
		if _, err := dice.Parse(expr); !errors.Is(err, dice.ErrInvalidExpression) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

func TestRoll_WithinBounds(t *testing.T) {
	t.Parallel()
	r := dice.NewRoller(nil)
	e, err := dice.Parse("3d6+2")
	if err != nil {
		t.Fatal(err)
	}
	for range 200 {
		res := r.RollExpr(e)
		if res.Total < e.Min() || res.Total > e.Max() {
			t.Fatalf("total %d outside [%d, %d]", res.Total, e.Min(), e.Max())
		}
		sum := res.Modifier
		for _, v := range res.Rolls {
			if v < 1 || v > 6 {
				t.Fatalf("die %d outside [1, 6]", v)
			}
			sum += v
		}
		if sum != res.Total {
			t.Fatalf("sum of rolls %d != total %d", sum, res.Total)
		}
	}
}

func TestRoll_Deterministic(t *testing.T) {
	t.Parallel()
	a := dice.NewRoller(rand.NewPCG(1, 2))
	b := dice.NewRoller(rand.NewPCG(1, 2))
	ra, err := a.Roll("4d20")
	if err != nil {
		t.Fatal(err)
	}
	rb, _ := b.Roll("4d20")
	if diff := cmp.Diff(ra, rb); diff != "" {
		t.Errorf("same seed, different rolls (-a +b):\n%s", diff)
	}
}

func TestRoll_Invalid(t *testing.T) {
	t.Parallel()
	if _, err := dice.NewRoller(nil).Roll("banana"); err == nil {
		t.Fatal("want error")
	}
}
