// Package integrators computes step propagators exp(dt·G) for constant
// generators.
//
//   - [Pade]: scaling and squaring Padé exponential, exact to rounding
//   - [RK4]: fixed sub-step classical Runge-Kutta on dU/dt = G·U
//   - [RK45]: adaptive Dormand-Prince on dU/dt = G·U
//
// Pade is the default for optimization. The Runge-Kutta schemes integrate the
// same equation from U(0) = I and serve as independent cross-checks.
package integrators
