package markov

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// descartes is the running example used throughout the tests.
var descartes = []string{"i", "think", "therefore", "i", "am", "i", "think", "i", "think"}

// fixedSource always returns the same draw.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

// setupTestModels trains every order from descartes.
func setupTestModels(t *testing.T) *Models {
	t.Helper()
	models, err := BuildAll(descartes)
	require.NoError(t, err, "setup: BuildAll() failed")
	return models
}

var (
	benchmarkCorpus []string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a token corpus for benchmarking.
func createBenchmarkCorpus() []string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				sb.Reset()
				sb.WriteString("this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. ")
				break
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = NewDefaultTokenizer().Tokenize(sb.String())
	})
	return benchmarkCorpus
}
