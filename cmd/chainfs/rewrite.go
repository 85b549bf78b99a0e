/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/rstms/chainfs/filesys"
	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite DST_IMAGE",
	Short: "copy the image into a freshly formatted one",
	Long: `
Create DST_IMAGE and copy every directory and file of the current image
into it, leaving all free space at the end of the new disk.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sectors, err := cmd.Flags().GetInt("size")
		if err != nil {
			return err
		}
		return image.RewriteImage(args[0], viper.GetString("image"), sectors)
	},
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
	rewriteCmd.Flags().Int("size", filesys.NumSectors, "new disk size in sectors")
}
