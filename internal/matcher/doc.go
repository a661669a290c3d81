// Package matcher compares phone listing names by their components (model,
// storage, colour, SIM type) and parses supplier price lists and admin
// threshold input.
package matcher
