// Package cfl reads and writes complex array files as a header/data
// pair: <name>.hdr holds the dimension vector as text and <name>.cfl
// holds the samples as little-endian float32 real/imaginary pairs,
// first axis fastest.
package cfl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"bpsense/internal/models"
	"bpsense/pkg/array"
)

// Load reads the array stored under the given base name.
func Load(name string) (*array.Array, error) {
	hdr, err := os.ReadFile(name + ".hdr")
	if err != nil {
		return nil, fmt.Errorf("cfl: reading header: %w", err)
	}
	dims, err := parseHeader(string(hdr))
	if err != nil {
		return nil, fmt.Errorf("cfl: %s: %w", name, err)
	}

	f, err := os.Open(name + ".cfl")
	if err != nil {
		return nil, fmt.Errorf("cfl: opening data: %w", err)
	}
	defer f.Close()

	a := array.New(dims)
	r := bufio.NewReader(f)
	buf := make([]byte, 8)
	for i := range a.Data {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("cfl: %s: short data file: %w", name, err)
		}
		re := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))
		a.Data[i] = complex(float64(re), float64(im))
	}
	return a, nil
}

// Store writes the array under the given base name, replacing any
// existing pair.
func Store(name string, a *array.Array) error {
	var hdr strings.Builder
	hdr.WriteString("# Dimensions\n")
	for i, d := range a.Dims {
		if i > 0 {
			hdr.WriteByte(' ')
		}
		fmt.Fprintf(&hdr, "%d", d)
	}
	hdr.WriteByte('\n')
	if err := os.WriteFile(name+".hdr", []byte(hdr.String()), 0644); err != nil {
		return fmt.Errorf("cfl: writing header: %w", err)
	}

	f, err := os.Create(name + ".cfl")
	if err != nil {
		return fmt.Errorf("cfl: creating data: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, 8)
	for _, v := range a.Data {
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(real(v))))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(imag(v))))
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("cfl: writing data: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("cfl: flushing data: %w", err)
	}
	return nil
}

func parseHeader(s string) (models.Dims, error) {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		dims := models.MakeDims()
		if len(fields) > len(dims) {
			return nil, fmt.Errorf("header lists %d dimensions, at most %d supported", len(fields), len(dims))
		}
		for i, fstr := range fields {
			var d int
			if _, err := fmt.Sscanf(fstr, "%d", &d); err != nil || d < 1 {
				return nil, fmt.Errorf("bad dimension %q", fstr)
			}
			dims[i] = d
		}
		return dims, nil
	}
	return nil, fmt.Errorf("header has no dimension line")
}
