package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// GoldenProduct is one golden test case: two integer matrices and their
// exact product.
type GoldenProduct struct {
	Name    string    `json:"name"`
	A       [][]int64 `json:"a"`
	B       [][]int64 `json:"b"`
	Product [][]int64 `json:"product"`
}

func main() {
	outputDir := flag.String("out", "internal/multiplier/testdata", "Output directory for the golden file")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	filename := filepath.Join(*outputDir, "products_golden.json")
	file, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	var data []GoldenProduct
	for _, c := range cases() {
		c.Product = multiply(c.A, c.B)
		data = append(data, c)
		fmt.Printf("Generated %s\n", c.Name)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully generated golden file at %s\n", filename)
}

// cases returns small integer operands whose products are exact in float32.
// The 4x4 and 5x5 cases exercise Strassen's recursion and padding with a
// small threshold.
func cases() []GoldenProduct {
	return []GoldenProduct{
		{Name: "scalar", A: [][]int64{{3}}, B: [][]int64{{-4}}},
		{Name: "identity", A: [][]int64{{1, 0}, {0, 1}}, B: [][]int64{{5, 6}, {7, 8}}},
		{Name: "rectangular", A: [][]int64{{1, 2, 3}, {4, 5, 6}}, B: [][]int64{{7, 8}, {9, 10}, {11, 12}}},
		{Name: "signed3", A: [][]int64{{1, 2, 0}, {0, 1, -1}, {2, 0, 1}}, B: [][]int64{{3, 1, 2}, {1, 0, -1}, {0, 2, 1}}},
		{
			Name: "reverse-columns4",
			A:    [][]int64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}, {13, 14, 15, 16}},
			B:    [][]int64{{0, 0, 0, 1}, {0, 0, 1, 0}, {0, 1, 0, 0}, {1, 0, 0, 0}},
		},
		{
			Name: "ones5",
			A:    [][]int64{{1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}},
			B:    [][]int64{{1, 0, 0, 0, 0}, {0, 2, 0, 0, 0}, {0, 0, 3, 0, 0}, {0, 0, 0, 4, 0}, {0, 0, 0, 0, 5}},
		},
	}
}

// multiply is the integer oracle used to produce the expected products.
func multiply(a, b [][]int64) [][]int64 {
	out := make([][]int64, len(a))
	for i := range a {
		out[i] = make([]int64, len(b[0]))
		for j := range out[i] {
			var s int64
			for k := range b {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}
