package rom

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// BytesPerLine is the number of bytes on each line of the hex format.
const BytesPerLine = 16

// Encode writes data as two uppercase hex digits per byte separated by
// spaces, breaking the line after every 16th byte.
func Encode(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)
	for i, b := range data {
		if i%BytesPerLine != 0 {
			bw.WriteByte(' ')
		}
		fmt.Fprintf(bw, "%02X", b)
		if (i+1)%BytesPerLine == 0 {
			bw.WriteByte('\n')
		}
	}
	if len(data)%BytesPerLine != 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Decode parses the output of Encode. Any whitespace separates bytes.
func Decode(r io.Reader) ([]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var out []byte
	for n := 1; sc.Scan(); n++ {
		field := sc.Text()
		if len(field) != 2 {
			return nil, fmt.Errorf("byte %d: %q is not two hex digits", n, field)
		}
		v, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("byte %d: %q is not two hex digits", n, field)
		}
		if len(out) >= Capacity {
			return nil, ErrImageFull
		}
		out = append(out, byte(v))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
