/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "remove a file or directory from the image",
	Long: `
Remove PATH and release its sectors. A directory that is not empty is
only removed with --recursive, together with everything below it.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, err := cmd.Flags().GetBool("recursive")
		if err != nil {
			return err
		}
		return withImage(func(i *image.Image) error {
			return i.Remove(args[0], recursive)
		})
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolP("recursive", "r", false, "remove directories and their contents")
}
