package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/summarizer"
	"github.com/papercomputeco/memoria/pkg/summarizer/openai"
)

var _ = Describe("Summarizer", func() {
	var (
		server  *httptest.Server
		lastReq map[string]any
		status  int
		content string
	)

	BeforeEach(func() {
		status = http.StatusOK
		content = "  topics: weather, cats, travel  "
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status != http.StatusOK {
				_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
				return
			}
			resp := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "local-model",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				}},
			}
			Expect(json.NewEncoder(w).Encode(resp)).To(Succeed())
		}))
		DeferCleanup(server.Close)
	})

	It("sends the tier prompt with sampling settings", func() {
		s := openai.New(openai.Config{BaseURL: server.URL + "/v1", Temperature: 0.5, MaxTokens: 250})

		text, err := s.Summarize(context.Background(), []string{"user: hi"}, summarizer.KindEpisodic)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("topics: weather, cats, travel"))

		Expect(lastReq["model"]).To(Equal(openai.DefaultModel))
		Expect(lastReq["temperature"]).To(BeNumerically("==", 0.5))
		Expect(lastReq["max_tokens"]).To(BeNumerically("==", 250))

		messages := lastReq["messages"].([]any)
		Expect(messages).To(HaveLen(1))
		Expect(messages[0].(map[string]any)["content"]).To(ContainSubstring("user: hi"))
	})

	It("wraps backend failures as ErrUnavailable", func() {
		status = http.StatusInternalServerError
		s := openai.New(openai.Config{BaseURL: server.URL + "/v1"})

		_, err := s.Summarize(context.Background(), []string{"x"}, summarizer.KindBranch)
		Expect(err).To(MatchError(summarizer.ErrUnavailable))
	})

	It("treats an empty completion as unavailable", func() {
		content = "   "
		s := openai.New(openai.Config{BaseURL: server.URL + "/v1"})

		_, err := s.Summarize(context.Background(), []string{"x"}, summarizer.KindGlobal)
		Expect(err).To(MatchError(summarizer.ErrUnavailable))
	})
})
