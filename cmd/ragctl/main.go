// Command ragctl maintains the knowledge bases, embeddings and remote index
// used by the retrieval service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
