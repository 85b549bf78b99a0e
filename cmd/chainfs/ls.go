/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"os"

	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "list a directory in the image",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/"
		if len(args) > 0 {
			path = args[0]
		}
		recursive, err := cmd.Flags().GetBool("recursive")
		if err != nil {
			return err
		}
		return withImage(func(i *image.Image) error {
			return i.List(os.Stdout, path, recursive)
		})
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolP("recursive", "r", false, "list the whole tree")
}
