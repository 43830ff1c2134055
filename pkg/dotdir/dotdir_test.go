package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		var err error
		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("prefers the local .memoria dir when no override is given", func() {
			local := filepath.Join(tmpDir, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { _ = os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to ~/.memoria", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(emptyDir)).To(Succeed())
			DeferCleanup(func() { _ = os.Chdir(origDir) })
			GinkgoT().Setenv("HOME", emptyDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, dotdir.DirName)))
		})
	})

	Describe("active namespace", func() {
		It("returns nil when nothing was selected", func() {
			state, err := m.LoadActive(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("round-trips the selected namespace", func() {
			now := time.Now().UTC().Truncate(time.Second)
			Expect(m.SaveActive(&dotdir.ActiveState{Namespace: "ada", SelectedAt: now}, tmpDir)).To(Succeed())

			state, err := m.LoadActive(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Namespace).To(Equal("ada"))
			Expect(state.SelectedAt.Equal(now)).To(BeTrue())
		})

		It("rejects an empty namespace", func() {
			Expect(m.SaveActive(&dotdir.ActiveState{}, tmpDir)).NotTo(Succeed())
			Expect(m.SaveActive(nil, tmpDir)).NotTo(Succeed())
		})

		It("returns an error for invalid JSON", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "active.json"), []byte("{"), 0o600)).To(Succeed())
			_, err := m.LoadActive(tmpDir)
			Expect(err).To(HaveOccurred())
		})

		It("clears the selection and tolerates a missing file", func() {
			Expect(m.SaveActive(&dotdir.ActiveState{Namespace: "ada"}, tmpDir)).To(Succeed())
			Expect(m.ClearActive(tmpDir)).To(Succeed())
			Expect(m.ClearActive(tmpDir)).To(Succeed())

			state, err := m.LoadActive(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})
})
