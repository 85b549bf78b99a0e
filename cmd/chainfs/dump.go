/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"os"

	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "print the free map, root directory and file headers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(i *image.Image) error {
			return i.Print(os.Stdout)
		})
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
