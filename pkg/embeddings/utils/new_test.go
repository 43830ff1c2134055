package embeddingutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/embeddings/cache"
	"github.com/papercomputeco/memoria/pkg/embeddings/hash"
	"github.com/papercomputeco/memoria/pkg/embeddings/ollama"
	embeddingutils "github.com/papercomputeco/memoria/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	It("defaults to the hash embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{Dimensions: 8, CacheSize: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&hash.Embedder{}))
	})

	It("builds a bare ollama embedder without a cache", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("wraps learned providers in a cache", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "openai", CacheSize: 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&cache.Embedder{}))
	})

	It("rejects unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "word2vec"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider")))
	})
})
