package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rollup"
	testutils "github.com/papercomputeco/memoria/pkg/utils/test"
	"github.com/papercomputeco/memoria/pkg/vector"
)

var _ = Describe("Server", func() {
	var (
		server   *Server
		registry *memoria.Registry
	)

	BeforeEach(func() {
		registry = memoria.NewRegistry(GinkgoT().TempDir(),
			memoria.WithEmbedder(testutils.NewMockEmbedder()),
			memoria.WithSummarizer(testutils.NewMockSummarizer()),
		)

		var err error
		server, err = NewServer(Config{ListenAddr: ":0"}, registry, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(registry.Close()).To(Succeed())
	})

	do := func(method, target, body string) *http.Response {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	appendMsg := func(ns, role, content string) *http.Response {
		body, err := json.Marshal(AppendRequest{Role: role, Content: content})
		Expect(err).NotTo(HaveOccurred())
		return do(http.MethodPost, "/v1/namespaces/"+ns+"/messages", string(body))
	}

	It("requires a registry", func() {
		_, err := NewServer(Config{}, nil, nil)
		Expect(err).To(HaveOccurred())
	})

	It("answers ping", func() {
		resp := do(http.MethodGet, "/ping", "")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		var body string
		decode(resp, &body)
		Expect(body).To(Equal("pong"))
	})

	Describe("namespaces", func() {
		It("initializes and lists namespaces", func() {
			resp := do(http.MethodPost, "/v1/namespaces/alice/init", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			resp = do(http.MethodGet, "/v1/namespaces", "")
			var body struct {
				Namespaces []string `json:"namespaces"`
				Count      int      `json:"count"`
			}
			decode(resp, &body)
			Expect(body.Namespaces).To(Equal([]string{"alice"}))
			Expect(body.Count).To(Equal(1))
		})
	})

	Describe("messages", func() {
		It("appends and reads back", func() {
			resp := appendMsg("alice", "user", "hello")
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
			var res memoria.AppendResult
			decode(resp, &res)
			Expect(res.ID).To(Equal(uint64(1)))

			Expect(appendMsg("alice", "assistant", "hi there").StatusCode).To(Equal(fiber.StatusCreated))

			var all MessagesResponse
			decode(do(http.MethodGet, "/v1/namespaces/alice/messages", ""), &all)
			Expect(all.LastID).To(Equal(uint64(2)))
			Expect(all.Messages).To(HaveLen(2))
			Expect(all.Messages[1].Content).To(Equal("hi there"))

			var ranged MessagesResponse
			decode(do(http.MethodGet, "/v1/namespaces/alice/messages?start=2&end=2", ""), &ranged)
			Expect(ranged.Messages).To(HaveLen(1))
			Expect(ranged.Messages[0].ID).To(Equal(uint64(2)))

			var recent MessagesResponse
			decode(do(http.MethodGet, "/v1/namespaces/alice/messages?recent=1", ""), &recent)
			Expect(recent.Messages).To(HaveLen(1))
			Expect(recent.Messages[0].Content).To(Equal("hi there"))
		})

		It("returns an empty list for an empty namespace", func() {
			var body MessagesResponse
			decode(do(http.MethodGet, "/v1/namespaces/empty/messages", ""), &body)
			Expect(body.Messages).NotTo(BeNil())
			Expect(body.Messages).To(BeEmpty())
		})

		It("rejects an invalid role", func() {
			resp := appendMsg("alice", "system", "x")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(ContainSubstring("invalid message role"))
		})

		It("rejects a malformed body", func() {
			resp := do(http.MethodPost, "/v1/namespaces/alice/messages", "{not json")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects bad query parameters", func() {
			Expect(do(http.MethodGet, "/v1/namespaces/alice/messages?recent=0", "").StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(do(http.MethodGet, "/v1/namespaces/alice/messages?start=x", "").StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(do(http.MethodDelete, "/v1/namespaces/alice/messages?n=-1", "").StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("truncates the tail", func() {
			for _, c := range []string{"a", "b", "c"} {
				appendMsg("alice", "user", c)
			}

			var body TruncateResponse
			decode(do(http.MethodDelete, "/v1/namespaces/alice/messages?n=2", ""), &body)
			Expect(body).To(Equal(TruncateResponse{Removed: 2, LastID: 1}))

			decode(do(http.MethodDelete, "/v1/namespaces/alice/messages", ""), &body)
			Expect(body).To(Equal(TruncateResponse{Removed: 1, LastID: 0}))
		})
	})

	Describe("retrieve", func() {
		It("requires a query", func() {
			resp := do(http.MethodGet, "/v1/namespaces/alice/retrieve", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(Equal("query parameter is required"))
		})

		It("validates top_n", func() {
			resp := do(http.MethodGet, "/v1/namespaces/alice/retrieve?query=x&top_n=0", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects a blank query", func() {
			resp := do(http.MethodGet, "/v1/namespaces/alice/retrieve?query=%20%20", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns excerpts", func() {
			appendMsg("alice", "user", "my cat is Tom")

			var body RetrieveResponse
			decode(do(http.MethodGet, "/v1/namespaces/alice/retrieve?query=cat", ""), &body)
			Expect(body.Query).To(Equal("cat"))
			Expect(body.Excerpts).To(Equal([]string{"user: my cat is Tom"}))
			Expect(body.Count).To(Equal(1))
		})

		It("returns episodes", func() {
			for range rollup.EpisodeSize {
				appendMsg("alice", "user", "hello")
			}

			var body EpisodesResponse
			decode(do(http.MethodGet, "/v1/namespaces/alice/episodes?query=hello&top_n=3", ""), &body)
			Expect(body.Count).To(Equal(1))
			Expect(body.Episodes[0].Messages).To(HaveLen(rollup.EpisodeSize))
		})
	})

	Describe("summaries, stats, rebuild and reset", func() {
		BeforeEach(func() {
			for range rollup.EpisodeSize {
				appendMsg("alice", "user", "hello")
			}
		})

		It("lists summaries", func() {
			var body SummariesResponse
			decode(do(http.MethodGet, "/v1/namespaces/alice/summaries", ""), &body)
			Expect(body.Episodic).To(HaveLen(1))
			Expect(body.Branch).To(BeEmpty())
		})

		It("reports stats", func() {
			var body memoria.Stats
			decode(do(http.MethodGet, "/v1/namespaces/alice/stats", ""), &body)
			Expect(body.Namespace).To(Equal("alice"))
			Expect(body.Messages).To(Equal(uint64(rollup.EpisodeSize)))
			Expect(body.Episodic).To(Equal(1))
		})

		It("rebuilds named collections", func() {
			resp := do(http.MethodPost, "/v1/namespaces/alice/rebuild", `{"collections":["raw"]}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			var body memoria.Stats
			decode(resp, &body)
			Expect(body.Collections[vector.Raw].Records).To(Equal(rollup.EpisodeSize))
		})

		It("rebuilds everything without a body", func() {
			Expect(do(http.MethodPost, "/v1/namespaces/alice/rebuild", "").StatusCode).To(Equal(fiber.StatusOK))
		})

		It("fails on unknown collections", func() {
			resp := do(http.MethodPost, "/v1/namespaces/alice/rebuild", `{"collections":["nope"]}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
		})

		It("resets the namespace", func() {
			Expect(do(http.MethodPost, "/v1/namespaces/alice/reset", "").StatusCode).To(Equal(fiber.StatusOK))

			var body memoria.Stats
			decode(do(http.MethodGet, "/v1/namespaces/alice/stats", ""), &body)
			Expect(body.Messages).To(BeZero())
			Expect(body.Episodic).To(BeZero())
		})
	})

	Describe("MCP mount", func() {
		It("routes /mcp to the handler", func() {
			called := false
			s, err := NewServer(Config{
				MCPHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					called = true
					w.WriteHeader(http.StatusAccepted)
				}),
			}, registry, nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}")))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			Expect(called).To(BeTrue())
		})
	})
})
