// This program manages keys, transactions and genesis documents for the
// pandanite chain, and inspects the chain stored by a node.
package main

import "github.com/ardanlabs/pandanite/app/tooling/pandanite/cmd"

func main() {
	cmd.Execute()
}
