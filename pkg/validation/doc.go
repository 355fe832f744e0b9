// Package validation checks user-provided scenario names and paths.
//
// Scenario names follow the identifier convention used throughout
// snapledger: a leading letter followed by letters, digits, hyphens or
// underscores, at most 64 characters.
//
// Paths given by name are resolved inside a base directory. ResolveWithin
// rejects absolute paths and ".." components, then resolves symbolic links
// and verifies the result is still contained in the base directory.
package validation
