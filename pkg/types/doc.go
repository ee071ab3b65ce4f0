// Package types defines the value types, multiplicity bounds, configuration
// and standard error values shared by the modelgraph packages.
package types
