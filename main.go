// SPDX-License-Identifier: GPL-3.0-only
package main

import "github.com/herokl/k8s-log-viewer/cmd"

func main() {
	cmd.Execute()
}
