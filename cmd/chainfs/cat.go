/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"os"

	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "write a file from the image to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(i *image.Image) error {
			return i.Cat(os.Stdout, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
