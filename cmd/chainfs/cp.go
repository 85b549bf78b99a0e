/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
)

var cpCmd = &cobra.Command{
	Use:   "cp HOST_FILE PATH",
	Short: "copy a host file into the image",
	Long: `
Create PATH in the image sized to HOST_FILE and copy its content.
The parent directory of PATH must already exist.
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(i *image.Image) error {
			return i.AddFile(args[1], args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
