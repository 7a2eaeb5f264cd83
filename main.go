package main

import "github.com/Alfresco/SearchServices-sub009/cmd"

func main() {
	cmd.Execute()
}
