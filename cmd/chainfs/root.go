/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"os"

	"github.com/rstms/chainfs/filesys"
	"github.com/rstms/chainfs/image"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chainfs",
	Short: "manage chained-header file system disk images",
	Long: `
chainfs creates and edits disk images holding a small teaching file system:
fixed-size directories mapping names to file headers, and file headers that
chain to continuation headers for files larger than one header can map.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		image.Verbose = viper.GetBool("verbose")
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chainfs.yaml)")
	rootCmd.PersistentFlags().StringP("image", "i", "chainfs.img", "disk image file")
	viper.BindPFlag("image", rootCmd.PersistentFlags().Lookup("image"))
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log progress")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.SetDefault("sectors", filesys.NumSectors)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".chainfs")
	}
	viper.SetEnvPrefix("chainfs")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// withImage opens the configured image for the duration of fn.
func withImage(fn func(*image.Image) error) error {
	i, err := image.OpenImage(viper.GetString("image"))
	if err != nil {
		return err
	}
	err = fn(i)
	cerr := i.Close()
	if err != nil {
		return err
	}
	return cerr
}
