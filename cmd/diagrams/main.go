// Package main generates architecture diagrams for go-thoroughbred.
//
// The diagrams are written as .dot files under docs/diagrams/go-diagrams/ and
// can be rendered with Graphviz.
//
// Usage:
//
//	go run cmd/diagrams/main.go
//
// This will generate:
//   - architecture.dot: how a horse detail page becomes stored records
//   - pipeline.dot: the extraction stages inside a single fetch
//   - components.dot: package dependencies
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/blushft/go-diagrams/diagram"
	"github.com/blushft/go-diagrams/nodes/generic"
	"github.com/blushft/go-diagrams/nodes/programming"
)

func main() {
	if err := os.MkdirAll("docs/diagrams", 0o750); err != nil {
		log.Fatal("Failed to create output directory:", err)
	}
	if err := os.Chdir("docs/diagrams"); err != nil {
		log.Fatal("Failed to change directory:", err)
	}

	generateArchitectureDiagram()
	generatePipelineDiagram()
	generateComponentDiagram()

	fmt.Println("Diagram .dot files generated successfully in ./docs/diagrams/go-diagrams/")
}

// generateArchitectureDiagram shows the callers, the fetch path through the
// headless browser and where results end up.
func generateArchitectureDiagram() {
	d, err := diagram.New(diagram.Filename("architecture"), diagram.Label("Go-Thoroughbred Architecture"), diagram.Direction("TB"))
	if err != nil {
		log.Fatal(err)
	}

	operator := generic.Blank.Blank(diagram.NodeLabel("Operator\n(CLI / HTTP client)"))
	cli := programming.Language.Go(diagram.NodeLabel("CLI\n(cobra: fetch, batch, search)"))
	api := programming.Language.Go(diagram.NodeLabel("HTTP API\n(net/http + middleware)"))
	scraper := programming.Language.Go(diagram.NodeLabel("Horse Scraper\n(schema, classify, pedigree)"))
	browser := generic.Blank.Blank(diagram.NodeLabel("Headless Chrome\n(chromedp)"))
	source := generic.Blank.Blank(diagram.NodeLabel("TJK horse detail page"))
	store := generic.Blank.Blank(diagram.NodeLabel("Horse Store\n(memory / PostgreSQL via bun)"))
	metrics := generic.Blank.Blank(diagram.NodeLabel("Metrics\n(prometheus)"))
	config := generic.Blank.Blank(diagram.NodeLabel("Configuration\n(env/godotenv)"))
	logging := generic.Blank.Blank(diagram.NodeLabel("Logging\n(logrus)"))

	d.Connect(operator, cli, diagram.Forward())
	d.Connect(operator, api, diagram.Forward())
	d.Connect(cli, scraper, diagram.Forward())
	d.Connect(api, scraper, diagram.Forward())
	d.Connect(scraper, browser, diagram.Forward())
	d.Connect(browser, source, diagram.Forward())
	d.Connect(cli, store, diagram.Forward())
	d.Connect(api, store, diagram.Forward())
	d.Connect(scraper, metrics, diagram.Forward())
	d.Connect(api, config, diagram.Forward())
	d.Connect(api, logging, diagram.Forward())

	if err := d.Render(); err != nil {
		log.Fatal(err)
	}
}

// generatePipelineDiagram shows the stages a captured page goes through.
func generatePipelineDiagram() {
	d, err := diagram.New(diagram.Filename("pipeline"), diagram.Label("Horse Detail Extraction"), diagram.Direction("LR"))
	if err != nil {
		log.Fatal(err)
	}

	navigate := programming.Language.Go(diagram.NodeLabel("Navigate\nsettle, scroll, pedigree tab"))
	parse := programming.Language.Go(diagram.NodeLabel("Parse HTML\n(goquery)"))
	schema := programming.Language.Go(diagram.NodeLabel("Resolve column schema"))
	classify := programming.Language.Go(diagram.NodeLabel("Classify rows\nrace / registration / cancelled"))
	pedigree := programming.Language.Go(diagram.NodeLabel("Resolve pedigree\nkey-value, table, free text"))
	statistics := programming.Language.Go(diagram.NodeLabel("Parse statistics"))
	result := generic.Blank.Blank(diagram.NodeLabel("HorseDetailData"))

	d.Connect(navigate, parse, diagram.Forward())
	d.Connect(parse, schema, diagram.Forward())
	d.Connect(schema, classify, diagram.Forward())
	d.Connect(parse, pedigree, diagram.Forward())
	d.Connect(parse, statistics, diagram.Forward())
	d.Connect(classify, result, diagram.Forward())
	d.Connect(pedigree, result, diagram.Forward())
	d.Connect(statistics, result, diagram.Forward())

	if err := d.Render(); err != nil {
		log.Fatal(err)
	}
}

// generateComponentDiagram shows how the packages depend on each other.
func generateComponentDiagram() {
	d, err := diagram.New(diagram.Filename("components"), diagram.Label("Go-Thoroughbred Components"), diagram.Direction("LR"))
	if err != nil {
		log.Fatal(err)
	}

	main := programming.Language.Go(diagram.NodeLabel("main.go"))
	rootCmd := programming.Language.Go(diagram.NodeLabel("cmd/go-thoroughbred\nroot.go"))
	fetchCmd := programming.Language.Go(diagram.NodeLabel("cmd/go-thoroughbred\nfetch.go, batch.go"))
	serveCmd := programming.Language.Go(diagram.NodeLabel("cmd/go-thoroughbred\nserve.go"))
	server := programming.Language.Go(diagram.NodeLabel("internal/server\nserver.go"))
	middleware := programming.Language.Go(diagram.NodeLabel("internal/middleware\nlogging, security, ratelimit"))
	scraper := programming.Language.Go(diagram.NodeLabel("internal/services/scraper"))
	browser := programming.Language.Go(diagram.NodeLabel("internal/services/browser"))
	search := programming.Language.Go(diagram.NodeLabel("internal/services/search\nfuzzy_horse_searcher.go"))
	store := programming.Language.Go(diagram.NodeLabel("internal/store\nmemory.go, postgres.go"))
	metrics := programming.Language.Go(diagram.NodeLabel("internal/metrics"))
	config := programming.Language.Go(diagram.NodeLabel("pkg/config\nconfig.go"))
	logging := programming.Language.Go(diagram.NodeLabel("pkg/logging\nlogger.go"))
	version := programming.Language.Go(diagram.NodeLabel("pkg/version\nversion.go"))
	man := programming.Language.Go(diagram.NodeLabel("pkg/man\nman.go"))

	d.Connect(main, rootCmd, diagram.Forward())
	d.Connect(rootCmd, fetchCmd, diagram.Forward())
	d.Connect(rootCmd, serveCmd, diagram.Forward())
	d.Connect(rootCmd, config, diagram.Forward())
	d.Connect(rootCmd, version, diagram.Forward())
	d.Connect(rootCmd, man, diagram.Forward())
	d.Connect(fetchCmd, scraper, diagram.Forward())
	d.Connect(fetchCmd, store, diagram.Forward())
	d.Connect(serveCmd, server, diagram.Forward())
	d.Connect(server, middleware, diagram.Forward())
	d.Connect(server, scraper, diagram.Forward())
	d.Connect(server, search, diagram.Forward())
	d.Connect(server, store, diagram.Forward())
	d.Connect(scraper, browser, diagram.Forward())
	d.Connect(scraper, metrics, diagram.Forward())
	d.Connect(search, store, diagram.Forward())
	d.Connect(server, logging, diagram.Forward())

	if err := d.Render(); err != nil {
		log.Fatal(err)
	}
}
