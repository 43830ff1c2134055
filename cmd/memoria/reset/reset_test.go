package resetcmder_test

import (
	"bytes"
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	memoriacmder "github.com/papercomputeco/memoria/cmd/memoria"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

var _ = Describe("Reset command execution", func() {
	var dir string

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), ".memoria")

		for _, ns := range []string{"default", "luna"} {
			s, err := memoria.Open(dir, ns)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Append(context.Background(), rawlog.RoleUser, "remember me")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close()).To(Succeed())
		}
	})

	execute := func(args ...string) error {
		cmd := memoriacmder.NewMemoriaCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(append([]string{"reset"}, args...), "--config-dir", dir))
		return cmd.Execute()
	}

	lastID := func(ns string) uint64 {
		s, err := memoria.Open(dir, ns)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		return s.LastID()
	}

	It("requires confirmation", func() {
		Expect(execute()).To(MatchError(ContainSubstring("--yes")))
		Expect(lastID("default")).To(BeEquivalentTo(1))
	})

	It("empties only the selected namespace", func() {
		Expect(execute("--yes")).To(Succeed())
		Expect(lastID("default")).To(BeZero())
		Expect(lastID("luna")).To(BeEquivalentTo(1))
	})
})
