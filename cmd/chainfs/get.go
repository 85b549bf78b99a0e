/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get PATH HOST_FILE",
	Short: "copy a file out of the image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(i *image.Image) error {
			return i.GetFile(args[1], args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
