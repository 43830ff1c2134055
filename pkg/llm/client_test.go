package llm_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/llm"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		received llm.ChatRequest
		auth     string
		stream   string
		status   int
	)

	BeforeEach(func() {
		status = http.StatusOK
		stream = "data: {\"model\":\"m1\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
			"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			": keep-alive\n\n" +
			"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"}}]}\n\n" +
			"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}],\"usage\":{\"total_tokens\":7}}\n\n" +
			"data: [DONE]\n\n"

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			if status != http.StatusOK {
				w.WriteHeader(status)
				fmt.Fprint(w, "model not loaded")
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, stream)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newClient := func(c llm.Config) *llm.Client {
		c.BaseURL = server.URL + "/v1/"
		if c.Model == "" {
			c.Model = "local-model"
		}
		return llm.NewClient(c)
	}

	It("streams tokens and assembles the response", func() {
		var tokens []string
		resp, err := newClient(llm.Config{}).Stream(context.Background(),
			[]llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
			func(t string) { tokens = append(tokens, t) },
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(tokens).To(Equal([]string{"Hel", "lo"}))
		Expect(resp.Content).To(Equal("Hello"))
		Expect(resp.Model).To(Equal("m1"))
		Expect(resp.FinishReason).To(Equal("stop"))
		Expect(resp.Usage).NotTo(BeNil())
		Expect(resp.Usage.TotalTokens).To(Equal(7))
	})

	It("sends the chat defaults", func() {
		_, err := newClient(llm.Config{}).Stream(context.Background(),
			[]llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")}, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(received.Model).To(Equal("local-model"))
		Expect(received.Stream).To(BeTrue())
		Expect(*received.Temperature).To(Equal(llm.DefaultTemperature))
		Expect(*received.MaxTokens).To(Equal(llm.DefaultMaxTokens))
		Expect(received.Messages).To(Equal([]llm.Message{{Role: "user", Content: "hi"}}))
		Expect(auth).To(BeEmpty())
	})

	It("sends the api key as a bearer token", func() {
		_, err := newClient(llm.Config{APIKey: "secret"}).Stream(context.Background(), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(auth).To(Equal("Bearer secret"))
	})

	It("skips unparseable chunks", func() {
		stream = "data: not json\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\ndata: [DONE]\n\n"
		resp, err := newClient(llm.Config{}).Stream(context.Background(), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("ok"))
	})

	It("stops at the done sentinel", func() {
		stream = "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\ndata: [DONE]\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n"
		resp, err := newClient(llm.Config{}).Stream(context.Background(), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("a"))
	})

	It("copies the raw stream to the transcript", func() {
		var transcript bytes.Buffer
		_, err := newClient(llm.Config{Transcript: &transcript}).Stream(context.Background(), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(transcript.String()).To(Equal(stream))
	})

	It("reports non-200 responses as unavailable", func() {
		status = http.StatusServiceUnavailable
		_, err := newClient(llm.Config{}).Stream(context.Background(), nil, nil)
		Expect(err).To(MatchError(llm.ErrUnavailable))
		Expect(err.Error()).To(ContainSubstring("model not loaded"))
	})

	It("reports connection failures as unavailable", func() {
		c := llm.NewClient(llm.Config{BaseURL: "http://127.0.0.1:1"})
		_, err := c.Stream(context.Background(), nil, nil)
		Expect(err).To(MatchError(llm.ErrUnavailable))
	})
})
