// Package spectrum estimates wireless channel congestion from a set of observed
// access points and suggests which channels to use.
//
// Everything here is pure: callers hand in a snapshot of access points and get
// fresh tables back. Scanning, association lookup and presentation live in the
// scan and render packages.
package spectrum
