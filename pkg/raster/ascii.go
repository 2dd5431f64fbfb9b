package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadASCII decodes an ESRI ASCII grid. Both corner and centre origin headers
// are accepted; the definition always stores the lower-left corner.
func ReadASCII(name string, r io.Reader) (*Raster, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string

	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			first = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: %s: header %s has no value", ErrUnsupportedFormat, name, key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: header %s: %w", ErrUnsupportedFormat, name, key, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	def, err := asciiDefinition(name, header)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, def.Len())
	if first != "" {
		v, err := strconv.ParseFloat(first, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: cell 0: %w", ErrUnsupportedFormat, name, err)
		}
		values = append(values, v)
	}
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: cell %d: %w", ErrUnsupportedFormat, name, len(values), err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	ras, err := New(name, def, values)
	if err != nil {
		return nil, err
	}
	if nd, ok := header["nodata_value"]; ok {
		ras.WithNoData(nd)
	}
	return ras, nil
}

// WriteASCII encodes r as an ESRI ASCII grid with a lower-left corner origin.
func WriteASCII(w io.Writer, r *Raster) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "ncols %d\n", r.Cols)
	fmt.Fprintf(bw, "nrows %d\n", r.Rows)
	fmt.Fprintf(bw, "xllcorner %s\n", formatValue(r.OriginX))
	fmt.Fprintf(bw, "yllcorner %s\n", formatValue(r.OriginY))
	fmt.Fprintf(bw, "cellsize %s\n", formatValue(r.CellSize))
	if r.HasNoData {
		fmt.Fprintf(bw, "NODATA_value %s\n", formatValue(r.NoData))
	}

	for row := range r.Rows {
		for col := range r.Cols {
			if col > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(formatValue(r.Values[r.Index(row, col)]))
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isHeaderKey(key string) bool {
	switch key {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

func asciiDefinition(name string, h map[string]float64) (Definition, error) {
	for _, key := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := h[key]; !ok {
			return Definition{}, fmt.Errorf("%w: %s: missing header %s", ErrUnsupportedFormat, name, key)
		}
	}

	def := Definition{
		Cols:     int(h["ncols"]),
		Rows:     int(h["nrows"]),
		CellSize: h["cellsize"],
	}

	switch {
	case hasKeys(h, "xllcorner", "yllcorner"):
		def.OriginX, def.OriginY = h["xllcorner"], h["yllcorner"]
	case hasKeys(h, "xllcenter", "yllcenter"):
		def.OriginX = h["xllcenter"] - def.CellSize/2
		def.OriginY = h["yllcenter"] - def.CellSize/2
	default:
		return Definition{}, fmt.Errorf("%w: %s: missing origin header", ErrUnsupportedFormat, name)
	}

	return def, nil
}

func hasKeys(h map[string]float64, keys ...string) bool {
	for _, k := range keys {
		if _, ok := h[k]; !ok {
			return false
		}
	}
	return true
}
