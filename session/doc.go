// Package session holds the process-wide classifier behind the narrow
// init / predict / class-name / dispose surface exported to other
// languages.
//
// A Manager owns at most one classifier. Init replaces the current one:
// the replacement is built first, and only when it loads successfully is
// the previous classifier closed and the new one installed. Callers that
// predict concurrently with Init may observe either classifier.
//
// Every Manager method is serialized by an internal mutex.
package session
