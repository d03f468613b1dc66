// Package viz renders drive telemetry in the terminal and as images.
//
//   - [PlotChannels]: asciigraph chart of telemetry channels
//   - [TimePlot], [LocusPlot]: gonum/plot figures, written with [WritePNG]
//   - [Model]: Bubble Tea view that steps an experiment live
//   - [Summary]: lipgloss panel of run metrics
//
// # Key Bindings
//
//	Space  - Pause/Resume simulation
//	Tab    - Select the next tunable parameter
//	Up/K   - Increase the parameter by 5%
//	Down/J - Decrease the parameter by 5%
//	+/-    - Double or halve the ticks simulated per frame
//	?      - Show help overlay
package viz
