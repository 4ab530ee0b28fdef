package experiment

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/control"
	"github.com/san-kum/qpulse/internal/integrators"
	"github.com/san-kum/qpulse/internal/linalg"
	"github.com/san-kum/qpulse/internal/optim"
)

// Registry resolves the names used in problem configurations.
type Registry struct {
	integrators map[string]func() integrators.Integrator
	methods     map[string]optim.Method
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() integrators.Integrator),
		methods:     make(map[string]optim.Method),
	}

	r.integrators["pade"] = func() integrators.Integrator { return integrators.NewPade() }
	r.integrators["rk4"] = func() integrators.Integrator { return integrators.NewRK4(20) }
	r.integrators["rk45"] = func() integrators.Integrator { return integrators.NewRK45(1e-10) }

	r.methods["bfgs"] = optim.BFGS
	r.methods["lbfgs"] = optim.LBFGS

	return r
}

func (r *Registry) GetIntegrator(name string) (integrators.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetMethod(name string) (optim.Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return "", fmt.Errorf("unknown method: %s", name)
	}
	return m, nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operator assembles a configured operator as a dim×dim matrix.
func (r *Registry) Operator(op config.Operator, dim int) (*mat.CDense, error) {
	out := control.Zeros(dim)
	for i, t := range op {
		coeff := complex(t.Re, t.Im)
		if coeff == 0 {
			coeff = 1
		}

		var m *mat.CDense
		if t.Op != "" {
			p, ok := control.Pauli(t.Op)
			if !ok {
				return nil, fmt.Errorf("term %d: unknown operator %q", i, t.Op)
			}
			m = p
		} else {
			m = mat.NewCDense(dim, dim, nil)
			for row := range t.Matrix {
				for col, v := range t.Matrix[row] {
					m.Set(row, col, complex(v[0], v[1]))
				}
			}
		}

		if rows, cols := m.Dims(); rows != dim || cols != dim {
			return nil, fmt.Errorf("term %d is %d×%d, want %d×%d", i, rows, cols, dim, dim)
		}
		linalg.AddScaled(out, coeff, m)
	}
	return out, nil
}
