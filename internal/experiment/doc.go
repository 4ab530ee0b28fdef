// Package experiment turns a problem configuration into systems, a target
// and a composite objective, and runs the pulse optimizer on it.
package experiment
