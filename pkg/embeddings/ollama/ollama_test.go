package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/embeddings/ollama"
	"github.com/papercomputeco/memoria/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		lastReq map[string]any
		reply   string
		status  int
	)

	BeforeEach(func() {
		status = http.StatusOK
		reply = `{"embeddings":[[0.5,0.25,0.125]]}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		DeferCleanup(server.Close)
	})

	It("posts the model and input", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "nomic"})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.5, 0.25, 0.125}))
		Expect(lastReq["model"]).To(Equal("nomic"))
		Expect(lastReq["input"]).To(Equal("hello"))
	})

	It("wraps non-200 responses", func() {
		status = http.StatusInternalServerError
		reply = "boom"
		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("rejects empty responses", func() {
		reply = `{"embeddings":[]}`
		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("enforces the configured dimension", func() {
		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Dimensions: 8})

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrDimension))
		Expect(lastReq["dimensions"]).To(BeNumerically("==", 8))
	})

	It("reports unreachable servers as connection errors", func() {
		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: "http://127.0.0.1:1"})

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrConnection))
	})
})
