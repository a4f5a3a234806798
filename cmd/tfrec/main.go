/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/freyr-data/tfrecord/cmd/tfrec/cmd"

func main() {
	cmd.Execute()
}
