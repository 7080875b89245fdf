package ensemble

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

// threeBandData classifies rows by their first feature: below 0.33 class
// 0, below 0.66 class 1, else class 2. The second feature is deterministic
// noise.
func threeBandData() (x [][]float64, y []int) {
	for i := 0; i < 90; i++ {
		v := float64(i) / 90.0
		var c int
		switch {
		case v < 0.33:
			c = 0
		case v < 0.66:
			c = 1
		default:
			c = 2
		}
		x = append(x, []float64{v, math.Sin(float64(i))})
		y = append(y, c)
	}
	return x, y
}

func accuracy(c Classifier, x [][]float64, y []int) float64 {
	correct := 0
	for i := range x {
		if got, _ := c.Predict(x[i]); got == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func TestFitForest_SeparatesBands(t *testing.T) {
	x, y := threeBandData()
	f := FitForest(x, y, 3, Config{Trees: 50, MaxDepth: 10, MinLeaf: 1, Subsample: 1, Seed: 7})

	if acc := accuracy(f, x, y); acc < 0.95 {
		t.Fatalf("training accuracy %f, want >= 0.95", acc)
	}

	tests := []struct {
		in   []float64
		want int
	}{
		{[]float64{0.10, 0}, 0},
		{[]float64{0.50, 0}, 1},
		{[]float64{0.90, 0}, 2},
	}
	for _, tt := range tests {
		got, dist := f.Predict(tt.in)
		if got != tt.want {
			t.Errorf("Predict(%v) = %d, want %d", tt.in, got, tt.want)
		}
		if dist[got] <= 1.0/3 {
			t.Errorf("winning probability %f should beat uniform", dist[got])
		}
	}
}

func TestFitForest_DeterministicForSeed(t *testing.T) {
	x, y := threeBandData()
	cfg := Config{Trees: 20, MaxDepth: 8, Seed: 42}

	a := FitForest(x, y, 3, cfg)
	b := FitForest(x, y, 3, cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed and data must produce identical forests")
	}
}

func TestFitBoosting_SeparatesBands(t *testing.T) {
	x, y := threeBandData()
	m := FitBoosting(x, y, 3, Config{Trees: 40, MaxDepth: 4, MinLeaf: 1, LearningRate: 0.3, Subsample: 1, Seed: 7})

	if acc := accuracy(m, x, y); acc < 0.9 {
		t.Fatalf("training accuracy %f, want >= 0.9", acc)
	}
	got, dist := m.Predict([]float64{0.5, 0})
	if got != 1 {
		t.Errorf("Predict(0.5) = %d, want 1", got)
	}
	sum := 0.0
	for _, p := range dist {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %f, want 1", sum)
	}
}

func TestFitBoosting_DeterministicForSeed(t *testing.T) {
	x, y := threeBandData()
	cfg := Config{Kind: KindBoosting, Trees: 10, MaxDepth: 4, LearningRate: 0.2, Seed: 11}

	a := FitBoosting(x, y, 3, cfg)
	b := FitBoosting(x, y, 3, cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed and data must produce identical boosting models")
	}
}

func TestForest_JSONRoundTrip(t *testing.T) {
	x, y := threeBandData()
	orig := FitForest(x, y, 3, Config{Trees: 10, MaxDepth: 6, Seed: 3})

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Forest
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for i := range x {
		wantC, wantD := orig.Predict(x[i])
		gotC, gotD := restored.Predict(x[i])
		if gotC != wantC || !reflect.DeepEqual(gotD, wantD) {
			t.Fatalf("row %d: restored model diverges (%d vs %d)", i, gotC, wantC)
		}
	}
}

func TestBoosting_JSONRoundTrip(t *testing.T) {
	x, y := threeBandData()
	orig := FitBoosting(x, y, 3, Config{Trees: 5, MaxDepth: 4, LearningRate: 0.3, Seed: 3})

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Boosting
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for i := range x {
		wantC, _ := orig.Predict(x[i])
		gotC, _ := restored.Predict(x[i])
		if gotC != wantC {
			t.Fatalf("row %d: restored model diverges", i)
		}
	}
}

func TestFit_DispatchesOnKind(t *testing.T) {
	x, y := threeBandData()

	c, err := Fit(x, y, 3, Config{Kind: KindForest, Trees: 5, MaxDepth: 4, Seed: 1})
	if err != nil {
		t.Fatalf("forest: %v", err)
	}
	if _, ok := c.(*Forest); !ok {
		t.Errorf("expected *Forest, got %T", c)
	}

	c, err = Fit(x, y, 3, Config{Kind: KindBoosting, Trees: 2, MaxDepth: 4, Seed: 1})
	if err != nil {
		t.Fatalf("boosting: %v", err)
	}
	if _, ok := c.(*Boosting); !ok {
		t.Errorf("expected *Boosting, got %T", c)
	}

	if _, err := Fit(x, y, 3, Config{Kind: "svm"}); err == nil {
		t.Error("unknown kind should error")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(""); err != nil || k != KindForest {
		t.Errorf("empty kind should default to forest, got %q %v", k, err)
	}
	if k, err := ParseKind("boosting"); err != nil || k != KindBoosting {
		t.Errorf("ParseKind(boosting) = %q %v", k, err)
	}
	if _, err := ParseKind("nearest-neighbor"); err == nil {
		t.Error("unknown kind should error")
	}
}

func TestArgmax_TieGoesToLowestIndex(t *testing.T) {
	if got := argmax([]float64{0.4, 0.4, 0.2}); got != 0 {
		t.Errorf("argmax tie = %d, want 0", got)
	}
}

func TestTree_PureDataYieldsSingleLeaf(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []int{1, 1, 1}
	f := FitForest(x, y, 2, Config{Trees: 1, MaxDepth: 4, Seed: 1})

	root := f.Trees[0].Root
	if root.Feature != -1 {
		t.Fatalf("pure training data should produce a leaf root, got split on %d", root.Feature)
	}
	if root.Dist[1] != 1.0 {
		t.Errorf("leaf distribution = %v, want all mass on class 1", root.Dist)
	}
}
