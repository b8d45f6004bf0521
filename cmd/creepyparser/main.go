// Package main provides the creepyparser command line tool.
package main

func main() {
	Execute()
}
