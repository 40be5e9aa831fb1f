// SPDX-License-Identifier: Apache-2.0
package main

import "github.com/Rom-Forge/Forge/cmd"

func main() {
	cmd.Execute()
}
