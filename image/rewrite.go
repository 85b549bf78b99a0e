/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package image

import (
	"log"
)

// RewriteImage copies every file and directory of srcFile into a freshly
// formatted image of sectors sectors. Free space in the new image is
// contiguous because files are laid down in tree order.
func RewriteImage(dstFile, srcFile string, sectors int) error {
	src, err := OpenImage(srcFile)
	if err != nil {
		return Fatal(err)
	}
	defer src.Close()

	dst, err := CreateImage(dstFile, sectors)
	if err != nil {
		return Fatal(err)
	}
	defer dst.Close()

	return rewrite(dst, src)
}

func rewrite(dst, src *Image) error {
	records, err := src.ScanFiles()
	if err != nil {
		return Fatal(err)
	}
	for _, record := range records {
		if Verbose {
			log.Printf("rewrite: %+v\n", record)
		}
		if record.Dir {
			err := dst.Mkdir(record.Name)
			if err != nil {
				return Fatal(err)
			}
			continue
		}
		data, err := src.ReadFile(record.Name)
		if err != nil {
			return Fatal(err)
		}
		err = dst.WriteFile(record.Name, data)
		if err != nil {
			return Fatal(err)
		}
	}
	return nil
}
