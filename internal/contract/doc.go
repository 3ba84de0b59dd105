// Package contract loads the documented behavior of the profile API from
// CUE. The schema closes every struct, so misspelled keys in a contract
// file are load errors rather than silently ignored settings.
package contract
