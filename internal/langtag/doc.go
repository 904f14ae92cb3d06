// Package langtag resolves user-supplied language tags against the set of
// languages an engine reports, and derives a default from the system locale.
package langtag
