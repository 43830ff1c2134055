package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/embeddings/openai"
	"github.com/papercomputeco/memoria/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		lastReq map[string]any
		status  int
	)

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status != http.StatusOK {
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[0.5,-0.5]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`))
		}))
		DeferCleanup(server.Close)
	})

	It("converts the response to float32", func() {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL + "/v1", Model: "m", APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.5, -0.5}))
		Expect(lastReq["model"]).To(Equal("m"))
		Expect(lastReq["input"]).To(Equal("hello"))
	})

	It("wraps API errors", func() {
		status = http.StatusBadRequest
		e, _ := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL + "/v1", APIKey: "k"})

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("enforces the configured dimension", func() {
		e, _ := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL + "/v1", APIKey: "k", Dimensions: 3})

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrDimension))
	})
})
