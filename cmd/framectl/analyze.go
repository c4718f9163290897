package main

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/teenjuna/framer/codec"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// variant is a codec compared by the analysis.
type variant struct {
	name  string
	codec codec.Codec[[]byte]
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		sizes    []int
		zeros    []int
		zeroSize int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare the overhead of the framing codecs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateAnalysis(sizes, zeros, zeroSize); err != nil {
				return err
			}

			variants, err := analysisVariants(a.cfg.MaxFrame)
			if err != nil {
				return err
			}

			bySize, err := overheadTable(variants, "Size", sizes, func(size int) []byte {
				return payload(size, 0)
			})
			if err != nil {
				return err
			}

			byZeros, err := overheadTable(variants, "Zeros %", zeros, func(percent int) []byte {
				return payload(zeroSize, float64(percent)/100)
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Overhead by payload size, no zero bytes"))
			fmt.Fprintln(out, bySize)
			fmt.Fprintln(out)
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Overhead by zero density, %d byte payload", zeroSize)))
			fmt.Fprintln(out, byZeros)
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{100, 500, 1000, 5000, 10000}, "payload sizes")
	cmd.Flags().IntSliceVar(&zeros, "zeros", []int{0, 10, 25, 50}, "zero byte densities in percent")
	cmd.Flags().IntVar(&zeroSize, "zero-size", 1000, "payload size for the zero density table")

	return cmd
}

func validateAnalysis(sizes, zeros []int, zeroSize int) error {
	for _, size := range sizes {
		if size < 0 {
			return fmt.Errorf("size can't be < 0, got %d", size)
		}
	}
	for _, percent := range zeros {
		if percent < 0 || percent > 100 {
			return fmt.Errorf("zero density must be within 0-100, got %d", percent)
		}
	}
	if zeroSize < 0 {
		return fmt.Errorf("zero size can't be < 0, got %d", zeroSize)
	}
	return nil
}

func analysisVariants(maxFrame int) ([]variant, error) {
	variants := make([]variant, 0, 3)
	for _, v := range []struct{ name, codec, width string }{
		{"cobs", "cobs", ""},
		{"fixed32", "prefix", "fixed32"},
		{"varint", "prefix", "varint"},
	} {
		c, err := newCodec(v.codec, v.width, maxFrame)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant{name: v.name, codec: c})
	}
	return variants, nil
}

// overheadTable encodes one payload per parameter with every variant and renders the sizes.
func overheadTable(
	variants []variant,
	param string,
	params []int,
	payloadFunc func(param int) []byte,
) (string, error) {
	headers := []string{param, "Raw"}
	for _, v := range variants {
		headers = append(headers, v.name, v.name+" OH")
	}

	rows := make([][]string, 0, len(params))
	for _, p := range params {
		data := payloadFunc(p)
		row := []string{strconv.Itoa(p), strconv.Itoa(len(data))}

		for _, v := range variants {
			size, err := encodedSize(v.codec, data)
			if err != nil {
				return "", fmt.Errorf("%s, %s %d: %w", v.name, param, p, err)
			}
			row = append(row, strconv.Itoa(size), formatOverhead(size-len(data), len(data)))
		}

		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.String(), nil
}

func encodedSize(c codec.Codec[[]byte], data []byte) (int, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, data); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

func formatOverhead(overhead, raw int) string {
	if raw == 0 {
		return strconv.Itoa(overhead)
	}
	return fmt.Sprintf("%d (%.2f%%)", overhead, float64(overhead)*100/float64(raw))
}

// payload returns size bytes of 0x42 with the given share of them, spread evenly, set to zero.
func payload(size int, zeros float64) []byte {
	data := bytes.Repeat([]byte{0x42}, size)

	count := int(float64(size) * zeros)
	if count == 0 {
		return data
	}

	step := size / count
	for i := range count {
		if i*step < size {
			data[i*step] = 0
		}
	}
	return data
}
