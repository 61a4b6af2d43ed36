// Package reducer applies user intents to an immutable planner document.
//
// Apply is pure and total: it never mutates its input, never touches the
// network or the clock (timestamps travel inside the action), and maps every
// action to a successor document plus at most one activity-log entry. The
// sync engine and the CLI are the only callers; neither ever mutates a
// document directly.
package reducer
