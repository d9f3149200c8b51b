// Package pkg provides the core libraries for economic complexity analysis.
//
// # Overview
//
// ecomplexity computes the standard measures of economic complexity from
// bilateral trade data: revealed comparative advantage, country and product
// complexity indices, proximity matrices, projected networks, and the
// complexity outlook indicators. The pkg directory is organized into four
// main areas:
//
//  1. [core] - Domain logic (matrix building, Balassa, complexity, proximity, projection, outlook)
//  2. [cache] - Result caching backends (file, Redis, MongoDB)
//  3. [pipeline] - Orchestration (build → balassa → complexity → proximity → projection → outlook)
//  4. [dataset] - Input parsing (CSV/JSON readers, TOML configuration)
//
// # Architecture
//
// The typical data flow through ecomplexity:
//
//	Trade records (CSV/JSON)
//	         ↓
//	    [core/economy] package (country×product matrix)
//	         ↓
//	    [core/balassa] package (specialization matrix)
//	         ↓
//	    [core/complexity] + [core/proximity] packages (indices + similarity)
//	         ↓
//	    [core/projection] + [core/outlook] packages (networks + indicators)
//	         ↓
//	    JSON/DOT output
//
// # Quick Start
//
//	rows, err := dataset.ReadFile("trade.csv", economy.DefaultColumns())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{Rows: rows})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Complexity.CountryIndex)
//
// Supporting packages [errors], [observability], [graphio], and [buildinfo]
// provide error taxonomy, hook registration, network serialization, and
// version metadata.
package pkg
