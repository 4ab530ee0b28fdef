package control

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
)

func mustSystem(t *testing.T) *ControlSystem {
	t.Helper()
	cs, err := NewControlSystem(
		Generator(-0.5i, PauliZ()),
		Generator(-1i*math.Pi, PauliX()),
		Generator(-1i*math.Pi, PauliY()),
	)
	if err != nil {
		t.Fatalf("NewControlSystem: %v", err)
	}
	return cs
}

func TestComposeIsLinear(t *testing.T) {
	g := NewWithT(t)
	cs := mustSystem(t)

	got, err := cs.Compose([]float64{0.25, -2})
	g.Expect(err).NotTo(HaveOccurred())

	want := linalg.Clone(cs.Drift())
	linalg.AddScaled(want, 0.25, cs.Control(0))
	linalg.AddScaled(want, -2, cs.Control(1))
	g.Expect(linalg.FrobeniusDist(got, want)).To(BeNumerically("<", 1e-15))

	zero, err := cs.Compose([]float64{0, 0})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(linalg.FrobeniusDist(zero, cs.Drift())).To(BeZero())
}

func TestComposeDoesNotAlias(t *testing.T) {
	g := NewWithT(t)
	drift := Generator(-1i, PauliZ())
	cs, err := NewControlSystem(drift, PauliX())
	g.Expect(err).NotTo(HaveOccurred())

	drift.Set(0, 0, 42)
	out, err := cs.Compose([]float64{1})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out.At(0, 0)).To(Equal(complex128(-1i)))

	out.Set(0, 1, 7)
	g.Expect(cs.Control(0).At(0, 1)).To(Equal(complex128(1)))
}

func TestNewControlSystemRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name     string
		drift    *mat.CDense
		controls []*mat.CDense
		want     error
	}{
		{"no controls", PauliZ(), nil, dynamo.ErrNoControls},
		{"non-square drift", mat.NewCDense(2, 3, nil), []*mat.CDense{PauliX()}, dynamo.ErrShape},
		{"control mismatch", PauliZ(), []*mat.CDense{linalg.Identity(3)}, dynamo.ErrShape},
		{"nil control", PauliZ(), []*mat.CDense{nil}, dynamo.ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewControlSystem(tt.drift, tt.controls...)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComposeRejectsWrongAmplitudeCount(t *testing.T) {
	cs := mustSystem(t)
	for _, amps := range [][]float64{nil, {1}, {1, 2, 3}} {
		if _, err := cs.Compose(amps); !errors.Is(err, dynamo.ErrShape) {
			t.Errorf("len=%d: expected ErrShape, got %v", len(amps), err)
		}
	}
}

func TestDecouplingSystem(t *testing.T) {
	g := NewWithT(t)
	cs := mustSystem(t)
	p := Generator(-1i*math.Pi, PauliZ())

	ds, err := cs.DecouplingSystem(p)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ds.Dim()).To(Equal(4))
	g.Expect(ds.Channels()).To(Equal(2))
	g.Expect(ds.Base()).To(BeIdenticalTo(cs))

	amps := []float64{0.3, 0.7}
	aug, err := ds.ComposeAugmented(amps)
	g.Expect(err).NotTo(HaveOccurred())
	base, _ := cs.Compose(amps)

	g.Expect(linalg.FrobeniusDist(linalg.Block(aug, 0, 0, 2, 2), base)).To(BeZero())
	g.Expect(linalg.FrobeniusDist(linalg.Block(aug, 2, 2, 2, 2), base)).To(BeZero())
	g.Expect(linalg.FrobeniusDist(linalg.Block(aug, 0, 2, 2, 2), p)).To(BeZero())
	g.Expect(linalg.Norm1(linalg.Block(aug, 2, 0, 2, 2))).To(BeZero())

	ctrl := ds.Control(1)
	g.Expect(linalg.FrobeniusDist(linalg.Block(ctrl, 0, 0, 2, 2), cs.Control(1))).To(BeZero())
	g.Expect(linalg.FrobeniusDist(linalg.Block(ctrl, 2, 2, 2, 2), cs.Control(1))).To(BeZero())
	g.Expect(linalg.Norm1(linalg.Block(ctrl, 0, 2, 2, 2))).To(BeZero())

	_, err = ds.Compose([]float64{1})
	g.Expect(err).To(MatchError(dynamo.ErrShape))
}

func TestDecouplingSystemRejectsMismatch(t *testing.T) {
	cs := mustSystem(t)
	if _, err := cs.DecouplingSystem(linalg.Identity(3)); !errors.Is(err, dynamo.ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
	if _, err := cs.DecouplingSystem(nil); !errors.Is(err, dynamo.ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestPauliAlgebra(t *testing.T) {
	g := NewWithT(t)
	x, y, z := PauliX(), PauliY(), PauliZ()
	g.Expect(linalg.FrobeniusDist(linalg.Mul(x, x), PauliI())).To(BeZero())
	g.Expect(linalg.FrobeniusDist(linalg.Mul(x, y), linalg.Scale(1i, z))).To(BeZero())

	for _, name := range []string{"i", "x", "Y", "z"} {
		_, ok := Pauli(name)
		g.Expect(ok).To(BeTrue(), name)
	}
	_, ok := Pauli("w")
	g.Expect(ok).To(BeFalse())
}
