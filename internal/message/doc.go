// Package message renders the report text from a message template.
//
// Templates use {name} placeholders, optionally followed by a format spec:
// {cost:.2f}, {month:02d}, {nserver:3}. The spec grammar is
// [0][width][.precision][type] with type one of d, f, e, g or s.
//
// Available placeholders:
//   - year, month, day: today's date, integers without padding
//   - cost, forecast: month-to-date and forecast spend, floats
//   - nserver: number of live compute instances
//
// A float without a spec prints its shortest form with at least one
// decimal, so 12.5 stays "12.5" and 20 becomes "20.0".
package message
