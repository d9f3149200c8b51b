package economy_test

import (
	"fmt"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
)

func ExampleBuild_table() {
	// Aggregate raw trade records into a country×product matrix.
	rows := []economy.Record{
		{"country": "arg", "product": "beef", "value": 7.0},
		{"country": "deu", "product": "cars", "value": 10.0},
		{"country": "deu", "product": "cars", "value": 5.0},
	}

	m, _ := economy.Build(economy.Table{Rows: rows, Columns: economy.DefaultColumns()})

	v, _ := m.Value("deu", "cars")
	fmt.Println("Countries:", m.Countries())
	fmt.Println("Products:", m.Products())
	fmt.Println("deu/cars:", v)
	// Output:
	// Countries: [arg deu]
	// Products: [beef cars]
	// deu/cars: 15
}

func ExampleBuild_grid() {
	// Dense input with explicit labels.
	m, _ := economy.Build(economy.Grid{
		Countries: []string{"a", "b"},
		Products:  []string{"x", "y"},
		Values:    [][]float64{{10, 0}, {0, 10}},
	})

	countries, products := m.Dims()
	fmt.Println("Shape:", countries, "×", products)
	fmt.Println("Total:", m.Total())
	// Output:
	// Shape: 2 × 2
	// Total: 20
}
