package markov

// ModelStats holds aggregated statistics for a single trained model.
type ModelStats struct {
	Contexts       int // The number of distinct conditioning contexts.
	Transitions    int // The number of unique context->next_token links.
	TotalFrequency int // The sum of all link counts; the total number of trained transitions.
	Vocabulary     int // The number of distinct tokens in the training sequence.
}

// Models bundles the three models trained from one token sequence. The bigram
// and trigram models share their source, so they are consistent with each
// other for trigram fallback.
type Models struct {
	Unigram *UnigramModel
	Bigram  *BigramModel
	Trigram *TrigramModel
}

// BuildAll trains every model order from tokens.
func BuildAll(tokens []string) (*Models, error) {
	return BuildAllDocuments([][]string{tokens})
}

// BuildAllDocuments trains every model order from several independent token
// sequences. Unigram counts pool all documents, while bigram and trigram
// transitions never cross from the end of one document into the next.
// It returns ErrEmptyInput if the documents hold no tokens at all.
func BuildAllDocuments(docs [][]string) (*Models, error) {
	unigram, err := buildUnigram(docs)
	if err != nil {
		return nil, err
	}
	return &Models{
		Unigram: unigram,
		Bigram:  buildBigram(docs),
		Trigram: buildTrigram(docs),
	}, nil
}

// Chain returns the generation chain for order. Order 3 includes the bigram
// fallback.
func (m *Models) Chain(order int) (Chain, error) {
	switch order {
	case UnigramOrder:
		return m.Unigram, nil
	case BigramOrder:
		return m.Bigram, nil
	case TrigramOrder:
		return WithFallback(m.Trigram, m.Bigram), nil
	default:
		return nil, errOrder(order)
	}
}

// Stats returns the statistics of each model keyed by order.
func (m *Models) Stats() map[int]ModelStats {
	return map[int]ModelStats{
		UnigramOrder: m.Unigram.Stats(),
		BigramOrder:  m.Bigram.Stats(),
		TrigramOrder: m.Trigram.Stats(),
	}
}
