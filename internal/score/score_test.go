package score

import "testing"

func TestComputeBrightSmile(t *testing.T) {
	b := Compute(Inputs{GapWeight: 22, SMBScore: 6, RevenueSignals: 0, EmailQuality: 50, HasPhone: true}, 30)
	want := Breakdown{Automation: 88, BizFit: 80, Budget: 10, Contact: 80, Total: 72, Tier: Hot}
	if b != want {
		t.Errorf("got %+v, want %+v", b, want)
	}
}

func TestSubScores(t *testing.T) {
	if got := Automation(30); got != 100 {
		t.Errorf("Automation(30) = %d, want 100", got)
	}
	if got := Automation(0); got != 0 {
		t.Errorf("Automation(0) = %d, want 0", got)
	}
	if got := BizFit(-5); got != 0 {
		t.Errorf("BizFit(-5) = %d, want 0", got)
	}
	if got := BizFit(12); got != 100 {
		t.Errorf("BizFit(12) = %d, want 100", got)
	}
	budgets := map[int]int{0: 10, 1: 30, 2: 55, 3: 75, 4: 100, 7: 100}
	for n, want := range budgets {
		if got := Budget(n); got != want {
			t.Errorf("Budget(%d) = %d, want %d", n, got, want)
		}
	}
	if got := Contact(80, true); got != 100 {
		t.Errorf("Contact(80, phone) = %d, want 100", got)
	}
	if got := Contact(0, true); got != 30 {
		t.Errorf("Contact(0, phone) = %d, want 30", got)
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		total int
		want  Tier
	}{
		{65, Hot}, {64, Warm}, {45, Warm}, {44, Cold}, {30, Cold}, {29, Skip},
	}
	for _, tt := range tests {
		if got := TierFor(tt.total, 30); got != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestTotalMonotonic(t *testing.T) {
	values := []int{0, 10, 30, 50, 55, 75, 80, 100}
	for _, c := range values {
		for _, a := range values {
			for _, b := range values {
				for _, bud := range values {
					base := Total(c, a, b, bud)
					if c < 100 && Total(c+1, a, b, bud) < base {
						t.Fatalf("not monotonic in contact at %d,%d,%d,%d", c, a, b, bud)
					}
					if a < 100 && Total(c, a+1, b, bud) < base {
						t.Fatalf("not monotonic in automation at %d,%d,%d,%d", c, a, b, bud)
					}
					if b < 100 && Total(c, a, b+1, bud) < base {
						t.Fatalf("not monotonic in bizFit at %d,%d,%d,%d", c, a, b, bud)
					}
					if bud < 100 && Total(c, a, b, bud+1) < base {
						t.Fatalf("not monotonic in budget at %d,%d,%d,%d", c, a, b, bud)
					}
				}
			}
		}
	}
}
