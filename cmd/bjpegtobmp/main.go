// Command bjpegtobmp decodes each JPEG file named on the command line and
// writes a sibling .bmp next to it, for visually inspecting decoder
// output. It is the out-of-scope CLI collaborator described by the
// decoder's specification — no decoding logic lives here.
package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"bjpeg"
	"bjpeg/internal/bmp"
)

func main() {
	if len(os.Args) < 2 {
		log.Print("usage: bjpegtobmp <file.jpg> [more files...]")
		return
	}

	for _, path := range os.Args[1:] {
		if err := convert(path); err != nil {
			log.Printf("%s: %v", path, err)
		}
	}
}

func convert(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := bjpeg.Decode(f)
	if err != nil {
		return err
	}

	if c := img.Comment(); c != "" {
		log.Printf("%s: comment: %q", path, c)
	}

	out, err := os.Create(bmpName(path))
	if err != nil {
		return err
	}
	defer out.Close()

	return bmp.WriteRGB(out, img.Width(), img.Height(), func(row, col int) (byte, byte, byte) {
		px := img.At(row, col)
		return px.R, px.G, px.B
	})
}

func bmpName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".bmp"
}
