package mcp_test

import (
	"context"
	"encoding/json"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/api/mcp"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
	testutils "github.com/papercomputeco/memoria/pkg/utils/test"
)

var _ = Describe("MCP Server", func() {
	var (
		ctx      context.Context
		registry *memoria.Registry
		server   *mcp.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		registry = memoria.NewRegistry(GinkgoT().TempDir(),
			memoria.WithEmbedder(testutils.NewMockEmbedder()),
			memoria.WithSummarizer(testutils.NewMockSummarizer()),
		)

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Stores:    registry,
			Namespace: "agent",
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(registry.Close()).To(Succeed())
	})

	connect := func(s *mcp.Server) *sdk.ClientSession {
		clientTransport, serverTransport := sdk.NewInMemoryTransports()
		_, err := s.MCPServer().Connect(ctx, serverTransport, nil)
		Expect(err).NotTo(HaveOccurred())

		client := sdk.NewClient(&sdk.Implementation{Name: "test", Version: "test"}, nil)
		session, err := client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(session.Close)
		return session
	}

	toolNames := func(session *sdk.ClientSession) []string {
		res, err := session.ListTools(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, t := range res.Tools {
			names = append(names, t.Name)
		}
		return names
	}

	call := func(session *sdk.ClientSession, name string, args map[string]any) *sdk.CallToolResult {
		res, err := session.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	text := func(res *sdk.CallToolResult) string {
		Expect(res.Content).To(HaveLen(1))
		tc, ok := res.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())
		return tc.Text
	}

	Describe("NewServer", func() {
		It("returns an error when the registry is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("store registry is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Stores: registry})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("builds an empty server in noop mode", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		It("lists the retrieval and append tools", func() {
			Expect(toolNames(connect(server))).To(ConsistOf("retrieve", "retrieve_episodes", "append"))
		})

		It("leaves out append when read only", func() {
			s, err := mcp.NewServer(mcp.Config{Stores: registry, ReadOnly: true, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(toolNames(connect(s))).To(ConsistOf("retrieve", "retrieve_episodes"))
		})

		It("appends to the default namespace and retrieves it back", func() {
			session := connect(server)

			res := call(session, "append", map[string]any{"role": "user", "content": "my cat is called Tom"})
			Expect(res.IsError).To(BeFalse())
			var appended mcp.AppendOutput
			Expect(json.Unmarshal([]byte(text(res)), &appended)).To(Succeed())
			Expect(appended.ID).To(Equal(uint64(1)))

			res = call(session, "retrieve", map[string]any{"query": "cat"})
			Expect(res.IsError).To(BeFalse())
			var out mcp.RetrieveOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Excerpts).To(Equal([]string{"user: my cat is called Tom"}))
			Expect(out.Count).To(Equal(1))

			st, err := registry.Get("agent")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.LastID()).To(Equal(uint64(1)))
		})

		It("addresses other namespaces", func() {
			other, err := registry.Get("other")
			Expect(err).NotTo(HaveOccurred())
			_, err = other.Append(ctx, rawlog.RoleAssistant, "elsewhere")
			Expect(err).NotTo(HaveOccurred())

			res := call(connect(server), "retrieve", map[string]any{"query": "x", "namespace": "other"})
			var out mcp.RetrieveOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Excerpts).To(Equal([]string{"assistant: elsewhere"}))
		})

		It("reports an invalid role as a tool error", func() {
			res := call(connect(server), "append", map[string]any{"role": "system", "content": "x"})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("invalid message role"))
		})

		It("reports a blank query as a tool error", func() {
			res := call(connect(server), "retrieve", map[string]any{"query": " "})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("empty query"))
		})

		It("reports a blank episode query as a tool error", func() {
			res := call(connect(server), "retrieve_episodes", map[string]any{"query": ""})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("empty query"))
		})

		It("reports an invalid namespace as a tool error", func() {
			session := connect(server)

			res := call(session, "retrieve", map[string]any{"query": "x", "namespace": "../escape"})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("Failed to open namespace"))

			res = call(session, "retrieve_episodes", map[string]any{"query": "x", "namespace": "../escape"})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("Failed to open namespace"))
		})

		It("returns an empty excerpt list for an empty namespace", func() {
			res := call(connect(server), "retrieve", map[string]any{"query": "anything"})
			Expect(res.IsError).To(BeFalse())
			Expect(text(res)).To(ContainSubstring(`"excerpts":[]`))
		})

		It("returns episodes once a window rolls up", func() {
			st, err := registry.Get("agent")
			Expect(err).NotTo(HaveOccurred())
			for range 10 {
				_, err := st.Append(ctx, rawlog.RoleUser, "hello")
				Expect(err).NotTo(HaveOccurred())
			}

			res := call(connect(server), "retrieve_episodes", map[string]any{"query": "hello"})
			Expect(res.IsError).To(BeFalse())
			var out mcp.EpisodesOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Episodes).To(HaveLen(1))
			Expect(out.Episodes[0].Messages).To(HaveLen(10))
		})
	})
})
