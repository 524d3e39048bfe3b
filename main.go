package main

import "github.com/frahmantamala/college-erp/cmd"

func main() {
	cmd.Execute()
}
