package markov

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Train tokenizes data and builds the unigram, bigram and trigram models from
// the resulting sequence. The whole input is consumed before counting starts.
func (g *Generator) Train(ctx context.Context, data io.Reader) (*Models, error) {
	tokens, err := ReadTokens(g.tokenizer, data)
	if err != nil {
		return nil, err
	}
	return g.TrainTokens(ctx, tokens)
}

// TrainTokens builds every model order from an already tokenized sequence.
func (g *Generator) TrainTokens(ctx context.Context, tokens []string) (*Models, error) {
	return g.TrainDocuments(ctx, [][]string{tokens})
}

// TrainDocuments builds every model order from separately tokenized
// documents; see BuildAllDocuments.
func (g *Generator) TrainDocuments(ctx context.Context, docs [][]string) (*Models, error) {
	models, err := BuildAllDocuments(docs)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	tokenCount := 0
	for _, tokens := range docs {
		tokenCount += len(tokens)
	}

	allStats := models.Stats()
	for order := UnigramOrder; order <= TrigramOrder; order++ {
		stats := allStats[order]
		g.logger.InfoContext(ctx, "Training completed",
			slog.Int("order", order),
			slog.Int("documents", len(docs)),
			slog.Int("tokens_processed", tokenCount),
			slog.Int("contexts", stats.Contexts),
			slog.Int("transitions", stats.Transitions),
		)
	}
	return models, nil
}
