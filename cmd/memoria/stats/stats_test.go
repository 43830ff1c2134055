package statscmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	memoriacmder "github.com/papercomputeco/memoria/cmd/memoria"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

var _ = Describe("Stats command execution", func() {
	var dir string

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), ".memoria")

		s, err := memoria.Open(dir, "default")
		Expect(err).NotTo(HaveOccurred())
		ctx := context.Background()
		_, err = s.Append(ctx, rawlog.RoleUser, "hello there")
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Append(ctx, rawlog.RoleAssistant, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Close()).To(Succeed())
	})

	execute := func(args ...string) (string, error) {
		cmd := memoriacmder.NewMemoriaCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(append([]string{"stats"}, args...), "--config-dir", dir))
		err := cmd.Execute()
		return out.String(), err
	}

	It("prints statistics as JSON", func() {
		out, err := execute("--json")
		Expect(err).NotTo(HaveOccurred())

		var st memoria.Stats
		Expect(json.Unmarshal([]byte(out), &st)).To(Succeed())
		Expect(st.Namespace).To(Equal("default"))
		Expect(st.Messages).To(BeEquivalentTo(2))
		Expect(st.UserMessages).To(Equal(1))
		Expect(st.AssistantMessages).To(Equal(1))
		Expect(st.EmptyMessages).To(Equal(1))
		Expect(st.Pending).To(BeEquivalentTo(2))
	})

	It("prints a table", func() {
		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("messages"))
		Expect(out).To(ContainSubstring("raw_chunk"))
	})

	It("reports collections with a stale dimension", func() {
		out, err := execute("--json", "--embedding-dimensions", "32")
		Expect(err).NotTo(HaveOccurred())

		var st memoria.Stats
		Expect(json.Unmarshal([]byte(out), &st)).To(Succeed())
		Expect(st.StaleCollections).To(ContainElement("raw_chunk"))
	})
})
