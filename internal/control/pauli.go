package control

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/linalg"
)

func PauliI() *mat.CDense { return linalg.Identity(2) }

func PauliX() *mat.CDense {
	return linalg.FromRows([][]complex128{{0, 1}, {1, 0}})
}

func PauliY() *mat.CDense {
	return linalg.FromRows([][]complex128{{0, -1i}, {1i, 0}})
}

func PauliZ() *mat.CDense {
	return linalg.FromRows([][]complex128{{1, 0}, {0, -1}})
}

// Zeros returns the n×n zero generator, for systems without drift.
func Zeros(n int) *mat.CDense { return linalg.Zeros(n) }

// Generator returns coeff·m.
func Generator(coeff complex128, m *mat.CDense) *mat.CDense {
	return linalg.Scale(coeff, m)
}

// Pauli returns the named Pauli matrix ("i", "x", "y" or "z") and whether the
// name is known.
func Pauli(name string) (*mat.CDense, bool) {
	switch name {
	case "i", "I":
		return PauliI(), true
	case "x", "X":
		return PauliX(), true
	case "y", "Y":
		return PauliY(), true
	case "z", "Z":
		return PauliZ(), true
	}
	return nil, false
}
