// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/mdcatalog/mdcatalog/cmd/mdcatalog"

func main() {
	cmd.Execute()
}
