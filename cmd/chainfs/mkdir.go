/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "create a directory in the image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(func(i *image.Image) error {
			return i.Mkdir(args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd)
}
