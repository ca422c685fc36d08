package main

import "gorm.io/relations/cli"

func main() {
	cli.Execute()
}
