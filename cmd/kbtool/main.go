// Command kbtool is the knowledge base administration tool: seed advice
// documents into Weaviate and run raw relevance queries.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/kbtool"
)

func main() {
	var (
		query       string
		seedFile    string
		weaviateURL string
		ollamaURL   string
		embedModel  string
		class       string
		category    string
		bureau      string
		topK        int
		alpha       float64
	)

	flag.StringVar(&query, "q", "", "Query text")
	flag.StringVar(&query, "query", "", "Query text (long form)")
	flag.StringVar(&seedFile, "seed", "", "Seed file: JSON array of advice documents")
	flag.StringVar(&weaviateURL, "weaviate-url", "localhost:8081", "Weaviate host:port")
	flag.StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Ollama base URL")
	flag.StringVar(&embedModel, "embed-model", "mxbai-embed-large", "Embedding model name")
	flag.StringVar(&embedModel, "e", "mxbai-embed-large", "Embedding model shorthand")
	flag.StringVar(&class, "class", "NationalAdvice", "Target class (NationalAdvice|LocalAdvice)")
	flag.StringVar(&category, "category", "", "Filter national results by issue category")
	flag.StringVar(&bureau, "bureau", "", "Filter local results by bureau")
	flag.IntVar(&topK, "k", 5, "Top K results")
	flag.IntVar(&topK, "topk", 5, "Top K results (long form)")
	flag.Float64Var(&alpha, "alpha", 0.6, "Hybrid search alpha")
	flag.Parse()

	switch {
	case seedFile != "":
		n, err := kbtool.Seed(weaviateURL, ollamaURL, embedModel, class, seedFile)
		if err != nil {
			log.Fatal().Err(err).Int("seeded", n).Msg("seed failed")
		}
		fmt.Printf("seeded %d documents into %s\n", n, class)

	case query != "":
		out, err := kbtool.Query(weaviateURL, ollamaURL, embedModel, class, category, bureau, query, topK, float32(alpha))
		if err != nil {
			log.Fatal().Err(err).Msg("query failed")
		}
		fmt.Println(string(out))

	default:
		fmt.Println("either -q query or -seed file is required")
		os.Exit(1)
	}
}
