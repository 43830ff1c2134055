package usecmder_test

import (
	"bytes"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	memoriacmder "github.com/papercomputeco/memoria/cmd/memoria"
	"github.com/papercomputeco/memoria/pkg/dotdir"
)

var _ = Describe("Use command", func() {
	var dir string

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), ".memoria")
	})

	execute := func(args ...string) (string, error) {
		cmd := memoriacmder.NewMemoriaCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append(append([]string{"use"}, args...), "--config-dir", dir))
		err := cmd.Execute()
		return out.String(), err
	}

	It("saves the selected namespace", func() {
		_, err := execute("luna")
		Expect(err).NotTo(HaveOccurred())

		active, err := dotdir.NewManager().LoadActive(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).NotTo(BeNil())
		Expect(active.Namespace).To(Equal("luna"))
	})

	It("prints the selection", func() {
		_, err := execute("luna")
		Expect(err).NotTo(HaveOccurred())

		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("luna"))
	})

	It("reports when nothing is selected", func() {
		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No namespace selected"))
	})

	It("clears the selection", func() {
		_, err := execute("luna")
		Expect(err).NotTo(HaveOccurred())
		_, err = execute("--clear")
		Expect(err).NotTo(HaveOccurred())

		active, err := dotdir.NewManager().LoadActive(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeNil())
	})

	It("rejects invalid namespaces", func() {
		_, err := execute("../escape")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a namespace with --clear", func() {
		_, err := execute("luna", "--clear")
		Expect(err).To(HaveOccurred())
	})
})
