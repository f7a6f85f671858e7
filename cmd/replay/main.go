package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sadaflabs/sadaf/go-controller/internal/replay"
)

// #region main

func main() {
	flag.Parse()
	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay <fixture.json> [...]")
		os.Exit(2)
	}

	failed := 0
	for _, path := range paths {
		f, err := replay.LoadFixture(path)
		if err != nil {
			log.Fatalf("load %s: %v", path, err)
		}
		if err := replay.Verify(f); err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", path, err)
			continue
		}
		res, _ := replay.Replay(f)
		fmt.Printf("PASS %s: %s", path, res.Verdict)
		if res.ActionJSON != "" {
			fmt.Printf(" %s", res.ActionJSON)
		}
		fmt.Println()
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// #endregion main
