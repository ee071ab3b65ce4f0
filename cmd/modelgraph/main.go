// Command modelgraph builds and queries typed object graphs described by a
// metamodel.
package main

import "github.com/mesh-intelligence/modelgraph/internal/cli"

func main() {
	cli.Execute()
}
