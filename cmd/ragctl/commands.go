package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marvel-rag/internal/app"
	"marvel-rag/internal/bootstrap"
	"marvel-rag/internal/knowledge"
	"marvel-rag/internal/model"
	"marvel-rag/internal/retrieval"
)

func newBuildKBCmd(c *cli) *cobra.Command {
	var source, out string
	cmd := &cobra.Command{
		Use:   "build-kb",
		Short: "Split a markdown or PDF document into knowledge sections",
		Long: `Reads a markdown file (split on ## and ### headings) or a PDF (one
section per page) and writes the agent knowledge base as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if source == "" {
				source = c.cfg.Agent.KBSourceMarkdown
			}
			if out == "" {
				out = c.cfg.Agent.KBFile
			}
			docs, err := knowledge.BuildFromFile(source)
			if err != nil {
				return err
			}
			if err := knowledge.WriteJSON(out, knowledge.FormatSections, docs); err != nil {
				return err
			}
			cmd.Printf("Wrote %d sections to %s\n", len(docs), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source .md or .pdf file (default agent.kb_source_markdown)")
	cmd.Flags().StringVar(&out, "out", "", "output JSON file (default agent.kb_file)")
	return cmd
}

func newGenerateEmbeddingsCmd(c *cli) *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "generate-embeddings",
		Short: "Embed every document of a collection and replace its embedding store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *bootstrap.App) error {
				sync, err := syncFor(a, collection)
				if err != nil {
					return err
				}
				n, err := sync.RebuildEmbeddings(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("Stored %d %s embeddings\n", n, collection)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", model.CollectionAgent, "heroes or agent")
	return cmd
}

func newSyncIndexCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-index",
		Short: "Embed every knowledge section and upsert it into the remote index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *bootstrap.App) error {
				if a.Pinecone == nil || !a.Config.RemoteIndexEnabled() {
					return errors.New("remote index is not configured (pinecone.enabled, api_key, index_host)")
				}
				n, err := a.AgentSync.SyncIndex(cmd.Context(), a.Pinecone, a.Config.Pinecone.UpsertBatch)
				if err != nil {
					return err
				}
				cmd.Printf("Upserted %d vectors\n", n)
				return nil
			})
		},
	}
}

func newVerifyCmd(c *cli) *cobra.Command {
	var question string
	var limit int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run one agent query through the configured retrieval chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(question) == "" {
				return errors.New("--question is required")
			}
			return c.withApp(cmd.Context(), func(a *bootstrap.App) error {
				cmd.Printf("Tiers: %s\n", strings.Join(a.Tiers[app.FeatureMarvelAgent], " -> "))
				contexts, err := a.AgentRetriever.Retrieve(cmd.Context(), retrieval.Request{Query: question, Limit: limit})
				if err != nil {
					return err
				}
				printContexts(cmd, contexts)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to retrieve context for")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of sections (default agent.limit)")
	return cmd
}

func syncFor(a *bootstrap.App, collection string) (*app.SyncService, error) {
	switch collection {
	case model.CollectionHeroes:
		return a.HeroSync, nil
	case model.CollectionAgent:
		return a.AgentSync, nil
	}
	return nil, fmt.Errorf("unknown collection %q (want %s or %s)", collection, model.CollectionHeroes, model.CollectionAgent)
}

func printContexts(cmd *cobra.Command, contexts []model.Context) {
	if len(contexts) == 0 {
		cmd.Println("No matching sections.")
		return
	}
	for i, ctx := range contexts {
		cmd.Printf("%d. [%.4f] %s (%s)\n", i+1, ctx.Score, ctx.Title, ctx.ID)
	}
}
