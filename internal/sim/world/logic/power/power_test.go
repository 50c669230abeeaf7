package power

import "testing"

func TestCompute(t *testing.T) {
	cases := []struct {
		name  string
		units []Unit
		want  Report
	}{
		{"idle", nil, Report{Produced: 10, Consumed: 0, Ratio: 1}},
		{"starved", []Unit{{Draw: 3}, {Draw: 3}, {Draw: 2}, {Draw: 2}, {Draw: 30}}, Report{Produced: 10, Consumed: 40, Ratio: 0.25}},
		{"surplus", []Unit{{Draw: 3}, {Output: 12, Active: true}}, Report{Produced: 22, Consumed: 3, Ratio: 1}},
		{"unfuelled generator", []Unit{{Draw: 20}, {Output: 20, Active: false}}, Report{Produced: 10, Consumed: 20, Ratio: 0.5}},
	}
	for _, tc := range cases {
		if got := Compute(10, tc.units); got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestRatio_Clamped(t *testing.T) {
	if r := Ratio(-5, 10); r != 0 {
		t.Fatalf("negative supply ratio=%v", r)
	}
	if r := Ratio(5, 0); r != 1 {
		t.Fatalf("no consumers ratio=%v", r)
	}
}
