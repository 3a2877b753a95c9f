// Package viz renders comparison results in the terminal.
//
//   - [RenderReport] and [RenderFlag]: lipgloss-styled run summaries
//   - [Plot]: asciigraph line plots of divergence series
//   - [Live]: a Bubble Tea view stepping a harness session in real time
//   - [Canvas]: Braille-based pixel canvas used by the live view
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single step while paused
//	+/-   - Steps per frame
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
