package appendcmder_test

import (
	"bytes"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	memoriacmder "github.com/papercomputeco/memoria/cmd/memoria"
	appendcmder "github.com/papercomputeco/memoria/cmd/memoria/append"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

var _ = Describe("NewAppendCmd", func() {
	It("requires a role and content", func() {
		cmd := appendcmder.NewAppendCmd()
		Expect(cmd.Args(cmd, []string{"user"})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"user", "hi"})).To(Succeed())
	})
})

var _ = Describe("Append command execution", func() {
	var dir string

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), ".memoria")
	})

	execute := func(stdin string, args ...string) (string, error) {
		cmd := memoriacmder.NewMemoriaCmd()
		var out bytes.Buffer
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append(append([]string{"append"}, args...), "--config-dir", dir))
		err := cmd.Execute()
		return out.String(), err
	}

	read := func() []rawlog.Message {
		s, err := memoria.Open(dir, "default")
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		msgs, err := s.Recent(100)
		Expect(err).NotTo(HaveOccurred())
		return msgs
	}

	It("appends the joined content", func() {
		out, err := execute("", "user", "I", "grew", "up", "by", "the", "sea")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("#1"))

		msgs := read()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Role).To(Equal(rawlog.RoleUser))
		Expect(msgs[0].Content).To(Equal("I grew up by the sea"))
	})

	It("reads content from stdin", func() {
		_, err := execute("line one\nline two\n", "assistant", "-")
		Expect(err).NotTo(HaveOccurred())

		msgs := read()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Role).To(Equal(rawlog.RoleAssistant))
		Expect(msgs[0].Content).To(Equal("line one\nline two"))
	})

	It("rejects invalid roles", func() {
		_, err := execute("", "system", "hello")
		Expect(err).To(MatchError(rawlog.ErrInvalidRole))
	})
})
