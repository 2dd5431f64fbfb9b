package raster

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"
)

var worldFileExts = []string{".tfw", ".tifw", ".wld"}

// ReadTIFF decodes a single-band integer GeoTIFF. Gray, Gray16 and paletted
// layouts are supported; a paletted image yields its palette indices, which
// is how classified land-cover products store class codes. Georeferencing
// comes from the world file passed as world.
func ReadTIFF(name string, r io.Reader, world io.Reader) (*Raster, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	b := img.Bounds()
	def, err := readWorldFile(name, world, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, def.Len())

	switch px := img.(type) {
	case *image.Paletted:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(px.ColorIndexAt(x, y)))
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(px.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(px.Gray16At(x, y).Y))
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s: pixel layout %T", ErrUnsupportedFormat, name, img)
	}

	return New(name, def, values)
}

// readWorldFile parses the six-line world file that accompanies a GeoTIFF.
// Rotated grids and non-square cells are rejected.
func readWorldFile(name string, r io.Reader, cols, rows int) (Definition, error) {
	if r == nil {
		return Definition{}, fmt.Errorf("%w: %s", ErrMissingGeoreference, name)
	}

	var params []float64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Definition{}, fmt.Errorf("%w: %s world file: %w", ErrUnsupportedFormat, name, err)
		}
		params = append(params, v)
	}
	if err := sc.Err(); err != nil {
		return Definition{}, fmt.Errorf("read %s world file: %w", name, err)
	}
	if len(params) != 6 {
		return Definition{}, fmt.Errorf("%w: %s world file has %d parameters", ErrUnsupportedFormat, name, len(params))
	}

	xSize, rotY, rotX, ySize, cx, cy := params[0], params[1], params[2], params[3], params[4], params[5]
	if rotX != 0 || rotY != 0 {
		return Definition{}, fmt.Errorf("%w: %s is rotated", ErrUnsupportedFormat, name)
	}
	if math.Abs(xSize+ySize) > alignTolerance {
		return Definition{}, fmt.Errorf("%w: %s has non-square cells", ErrUnsupportedFormat, name)
	}

	top := cy + math.Abs(ySize)/2
	return Definition{
		Cols:     cols,
		Rows:     rows,
		OriginX:  cx - xSize/2,
		OriginY:  top - float64(rows)*math.Abs(ySize),
		CellSize: xSize,
	}, nil
}

func openWorldFile(path string) (*os.File, error) {
	base := strings.TrimSuffix(path, ext(path))
	for _, e := range worldFileExts {
		f, err := os.Open(base + e)
		if err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: no world file beside %s", ErrMissingGeoreference, path)
}
