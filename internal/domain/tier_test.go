package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTierOrderAndNames(t *testing.T) {
	t.Parallel()

	tiers := AllTiers()
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Rank() <= tiers[i-1].Rank() {
			t.Fatalf("tiers not in rank order: %v", tiers)
		}
	}
	if TierPlatinum.String() != "Platinum" || TierNew.String() != "New" {
		t.Fatalf("unexpected labels: %s %s", TierPlatinum, TierNew)
	}
	if Tier(9).Valid() || Tier(9).String() != "Tier(9)" {
		t.Fatalf("out of range tier should be invalid")
	}
}

func TestTierNextPrevSaturate(t *testing.T) {
	t.Parallel()

	if TierPlatinum.Next() != TierPlatinum {
		t.Fatalf("Platinum.Next should saturate")
	}
	if TierNew.Prev() != TierNew {
		t.Fatalf("New.Prev should saturate")
	}
	if TierSilver.Next() != TierGold || TierSilver.Prev() != TierBronze {
		t.Fatalf("Silver neighbours wrong")
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{in: "Gold", want: TierGold},
		{in: " platinum ", want: TierPlatinum},
		{in: "BRONZE", want: TierBronze},
		{in: "Diamond", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseTier(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseTier(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseTier(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestTierTextRoundTrip(t *testing.T) {
	t.Parallel()

	raw, err := TierSilver.MarshalText()
	if err != nil || string(raw) != "Silver" {
		t.Fatalf("MarshalText = %q, %v", raw, err)
	}
	var tier Tier
	if err := tier.UnmarshalText([]byte("gold")); err != nil || tier != TierGold {
		t.Fatalf("UnmarshalText = %v, %v", tier, err)
	}
	if _, err := Tier(-1).MarshalText(); err == nil {
		t.Fatalf("expected error for invalid tier")
	}
}

func TestProfileFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	cases := map[Tier]struct {
		flag  RiskFlag
		score float64
	}{
		TierPlatinum: {RiskLow, 0.8},
		TierGold:     {RiskLow, 0.8},
		TierSilver:   {RiskMedium, 0.5},
		TierBronze:   {RiskHigh, 0.3},
		TierNew:      {RiskHigh, 0.3},
	}
	for tier, want := range cases {
		p := ProfileFor("c1", tier, now)
		if p.RiskFlag != want.flag || p.StabilityScore != want.score || p.Tier != tier || !p.UpdatedAt.Equal(now) {
			t.Fatalf("ProfileFor(%s) = %+v", tier, p)
		}
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := Event{
		ID: "e1", CustomerID: "c1", Type: EventPurchase,
		Timestamp: time.Now(), Amount: 10, Quantity: 1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	broken := []func(e *Event){
		func(e *Event) { e.ID = "" },
		func(e *Event) { e.CustomerID = "" },
		func(e *Event) { e.Type = "" },
		func(e *Event) { e.Amount = -1 },
		func(e *Event) { e.Quantity = 0 },
		func(e *Event) { e.Timestamp = time.Time{} },
	}
	for i, mutate := range broken {
		ev := valid
		mutate(&ev)
		if err := ev.Validate(); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("case %d: expected ErrInvalidEvent, got %v", i, err)
		}
	}
}

func TestPredictionValidate(t *testing.T) {
	t.Parallel()

	if err := (Prediction{Tier: TierGold, Confidence: 0.9}).Validate(); err != nil {
		t.Fatalf("valid prediction rejected: %v", err)
	}
	for _, p := range []Prediction{
		{Tier: Tier(7), Confidence: 0.9},
		{Tier: TierGold, Confidence: 1.2},
		{Tier: TierGold, Confidence: -0.1},
	} {
		if err := p.Validate(); !errors.Is(err, ErrInvalidPrediction) {
			t.Fatalf("expected invalid prediction for %+v, got %v", p, err)
		}
	}
}

func TestIsClassifierDegraded(t *testing.T) {
	t.Parallel()

	if !IsClassifierDegraded(ErrClassifierTimeout) || !IsClassifierDegraded(ErrInvalidPrediction) {
		t.Fatalf("expected degraded")
	}
	wrapped := &PersistenceError{Op: "tier assignment", Err: errors.New("boom")}
	if IsClassifierDegraded(wrapped) {
		t.Fatalf("persistence error is not a classifier failure")
	}
	if wrapped.Error() != "persist tier assignment: boom" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
}
