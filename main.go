package main

import "github.com/KaramelBytes/excelinsight/cmd"

func main() {
	cmd.Execute()
}
