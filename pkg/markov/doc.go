/*
Package markov builds unigram, bigram and trigram language models from a token
sequence by maximum-likelihood counting, and generates pseudo-random text that
follows the local word-sequence statistics of the corpus.

Models are immutable once built and may be read concurrently. Randomness is
injected per generation call with WithSource or WithSeed, so output is
reproducible for a fixed seed. Trigram generation falls back to the bigram
distribution of the older context token whenever a token pair was never
observed; see WithFallback.

	tokens := markov.NewDefaultTokenizer().Tokenize(text)
	models, _ := markov.BuildAll(tokens)
	words, _ := markov.GenerateTrigram(models.Trigram, models.Bigram, "there", "is", 100)
*/
package markov
