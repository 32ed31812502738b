// Command lucenecli opens an index directory, runs one query from argv,
// and prints ranked hits. A thin demonstration harness, not a loader —
// grounded on the teacher's gl.go opening a directory and searching one
// term query, generalized to this module's full query syntax.
package main

import (
	"fmt"
	"log"
	"os"

	lucene2x "github.com/gosegment/lucene2x"
	"github.com/gosegment/lucene2x/store"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <index-dir> <query>\n", os.Args[0])
		os.Exit(2)
	}
	path, query := os.Args[1], os.Args[2]

	dir, err := store.OpenFSDirectory(path)
	if err != nil {
		log.Fatalf("opening %s: %v", path, err)
	}

	o, err := lucene2x.Open(dir, lucene2x.DefaultConfig(), true)
	if err != nil {
		log.Fatalf("opening index: %v", err)
	}
	defer o.Close()

	hits, err := o.Find(query)
	if err != nil {
		log.Fatalf("searching %q: %v", query, err)
	}

	fmt.Printf("%d hit(s)\n", len(hits))
	for _, h := range hits {
		doc, err := o.GetDocument(h.DocID)
		if err != nil {
			log.Fatalf("fetching document %d: %v", h.DocID, err)
		}
		title := doc.Get("title")
		fmt.Printf("  doc %d  score %.6f  title=%q\n", h.DocID, h.Score, title)
	}
}
