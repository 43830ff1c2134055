package vectorutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/vector"
	"github.com/papercomputeco/memoria/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/memoria/pkg/vector/utils"
)

var _ = Describe("NewIndexFactory", func() {
	It("returns no factory for none", func() {
		f, err := vectorutils.NewIndexFactory(&vectorutils.NewIndexFactoryOpts{ProviderType: "none"})
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(BeNil())
	})

	It("opens sqlite-vec indexes beside the collection files", func() {
		f, err := vectorutils.NewIndexFactory(&vectorutils.NewIndexFactoryOpts{ProviderType: "sqlite-vec"})
		Expect(err).NotTo(HaveOccurred())

		dir := GinkgoT().TempDir()
		idx, err := f(vector.IndexSpec{Dir: dir, Collection: vector.Episodic, Dimensions: 4})
		Expect(err).NotTo(HaveOccurred())
		defer idx.Close()

		Expect(idx).To(BeAssignableToTypeOf(&sqlitevec.Index{}))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewIndexFactory(&vectorutils.NewIndexFactoryOpts{ProviderType: "chroma"})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})

	It("scopes remote collection names by namespace", func() {
		Expect(vectorutils.CollectionName(vector.IndexSpec{Namespace: "work", Collection: "raw_chunk"})).
			To(Equal("memoria_work_raw_chunk"))
		Expect(vectorutils.CollectionName(vector.IndexSpec{Collection: "raw"})).To(Equal("memoria_raw"))
	})
})
