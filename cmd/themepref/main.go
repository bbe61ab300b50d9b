// Package main provides the themepref command line interface.
package main

func main() {
	Execute()
}
