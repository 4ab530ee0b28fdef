// Package viz renders pulses and run summaries for the terminal.
//
//   - [PulsePlot]: one asciigraph chart per control channel
//   - [SpectrumPlot], [ProfilePlot]: analysis results
//   - [RunSummary], [RunTable]: stored run metadata
//
// Colors follow [CurrentTheme]; switch with [SetTheme].
package viz
