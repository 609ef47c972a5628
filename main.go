package main

import "storefront-svc/cmd"

func main() {
	cmd.Execute()
}
