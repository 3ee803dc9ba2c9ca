package main

import "github.com/dt-pm-tools/jira-export/cmd"

func main() {
	cmd.Execute()
}
