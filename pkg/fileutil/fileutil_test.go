package fileutil_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/fileutil"
)

var _ = Describe("WriteFile", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("replaces existing content and leaves no temp files", func() {
		path := filepath.Join(dir, "metadata.json")
		Expect(os.WriteFile(path, []byte("old"), 0o600)).To(Succeed())

		Expect(fileutil.WriteFile(path, []byte("new"), 0o600)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("new"))

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("fails when the directory is missing", func() {
		err := fileutil.WriteFile(filepath.Join(dir, "missing", "f.json"), []byte("x"), 0o600)
		Expect(err).To(HaveOccurred())
	})

	It("writes indented JSON", func() {
		path := filepath.Join(dir, "tier.json")
		Expect(fileutil.WriteJSON(path, []int{1, 2})).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("[\n  1,\n  2\n]\n"))
	})
})

var _ = Describe("Lock", func() {
	It("acquires and releases", func() {
		path := filepath.Join(GinkgoT().TempDir(), "writer.lock")

		l, err := fileutil.Acquire(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Release()).To(Succeed())

		l, err = fileutil.Acquire(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Release()).To(Succeed())
	})

	It("tolerates releasing a nil lock", func() {
		var l *fileutil.Lock
		Expect(l.Release()).To(Succeed())
	})
})
