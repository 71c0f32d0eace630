package synth

import (
	"math/rand"
	"testing"

	"permsig/domain/core"
)

func TestGenerate_ColumnLayout(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(11)))
	coefs := []Coefficient{
		{Key: "g_1", Weight: 1.5},
		{Key: "g_2", Weight: -0.5},
	}

	f, err := g.Generate(100, coefs, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if f.RowCount() != 100 {
		t.Errorf("Expected 100 rows, got %d", f.RowCount())
	}
	if f.ColumnCount() != 5 {
		t.Errorf("Expected 5 columns, got %d", f.ColumnCount())
	}
	for _, key := range []core.FeatureKey{"g_1", "g_2", "n_1", "n_2", "n_3"} {
		if _, ok := f.Column(key); !ok {
			t.Errorf("Missing expected column %s", key)
		}
	}

	counts := f.LabelCounts()
	if len(counts) != 2 {
		t.Errorf("Expected both classes present, got %v", counts)
	}
}

func TestGenerate_Validation(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))

	if _, err := g.Generate(0, nil, 1); err == nil {
		t.Error("Expected error for zero rows")
	}
	if _, err := g.Generate(10, nil, -1); err == nil {
		t.Error("Expected error for negative noise count")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	coefs := []Coefficient{{Key: "g_1", Weight: 2.0}}

	first, err := NewGenerator(rand.New(rand.NewSource(99))).Generate(50, coefs, 2)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := NewGenerator(rand.New(rand.NewSource(99))).Generate(50, coefs, 2)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for i, label := range first.Labels() {
		if second.Labels()[i] != label {
			t.Fatalf("Labels diverged at row %d with identical seeds", i)
		}
	}
	a, _ := first.Column("g_1")
	b, _ := second.Column("g_1")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Column g_1 diverged at row %d with identical seeds", i)
		}
	}
}

func TestGenerate_PureNoise(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(7)))

	f, err := g.Generate(200, nil, 4)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if f.ColumnCount() != 4 {
		t.Errorf("Expected 4 noise columns, got %d", f.ColumnCount())
	}
	// The label is pure noise too, so both classes should be near-balanced
	counts := f.LabelCounts()
	for class, count := range counts {
		if count < 60 || count > 140 {
			t.Errorf("Class %s wildly imbalanced for a pure-noise label: %d/200", class, count)
		}
	}
}

func TestSignalCoefficients(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(3)))
	coefs := g.SignalCoefficients(5)

	if len(coefs) != 5 {
		t.Fatalf("Expected 5 coefficients, got %d", len(coefs))
	}
	for i, coef := range coefs {
		if string(coef.Key) != "g_"+string(rune('1'+i)) {
			t.Errorf("Coefficient %d has key %s", i, coef.Key)
		}
	}
}

func TestCoefficientsFromMap_StableOrder(t *testing.T) {
	weights := map[core.FeatureKey]float64{
		"gamma": 0.3,
		"alpha": 1.1,
		"beta":  -0.8,
	}

	coefs := CoefficientsFromMap(weights)
	want := []core.FeatureKey{"alpha", "beta", "gamma"}
	for i, key := range want {
		if coefs[i].Key != key {
			t.Errorf("Position %d: expected %s, got %s", i, key, coefs[i].Key)
		}
		if coefs[i].Weight != weights[key] {
			t.Errorf("Weight for %s mismatched", key)
		}
	}
}
