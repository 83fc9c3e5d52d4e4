// Package board holds the static wiring tables of the interface board
// variants.
//
// A variant names the output channels in header wiring order, where each
// header starts in that list, the power-up plan and the channels that
// flicker on power-up. Variants are embedded YAML files and are selected
// either by name or by the suffix of the device hostname; an unknown
// variant is a fatal configuration error.
package board
