/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"

	"github.com/rstms/chainfs/filesys"
	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "create an empty disk image",
	Long: `
Create the image file and write an empty free sector map and root directory.
An existing image is only replaced when --force is given.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := viper.GetString("image")
		if image.IsFile(filename) && !viper.GetBool("force") {
			return fmt.Errorf("image exists: %s", filename)
		}
		i, err := image.CreateImage(filename, viper.GetInt("sectors"))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d sectors free\n", filename, i.FreeSectors())
		return i.Close()
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().IntP("sectors", "s", filesys.NumSectors, "disk size in sectors")
	viper.BindPFlag("sectors", formatCmd.Flags().Lookup("sectors"))
	formatCmd.Flags().BoolP("force", "f", false, "replace an existing image")
	viper.BindPFlag("force", formatCmd.Flags().Lookup("force"))
}
