// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/mpsplit/mpsplit/cmd/mpsplit"

func main() {
	cmd.Execute()
}
