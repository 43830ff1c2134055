package vector_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/vector"
)

var _ = Describe("Cosine", func() {
	It("is 1 for parallel vectors", func() {
		Expect(vector.Cosine([]float32{1, 2}, []float32{2, 4})).To(BeNumerically("~", 1, 1e-6))
	})

	It("is 0 for orthogonal vectors", func() {
		Expect(vector.Cosine([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0, 1e-6))
	})

	It("is -1 for opposite vectors", func() {
		Expect(vector.Cosine([]float32{1, 1}, []float32{-1, -1})).To(BeNumerically("~", -1, 1e-6))
	})

	DescribeTable("degenerate inputs score 0",
		func(a, b []float32) {
			Expect(vector.Cosine(a, b)).To(BeZero())
		},
		Entry("empty", []float32{}, []float32{}),
		Entry("zero norm", []float32{0, 0}, []float32{1, 1}),
		Entry("length mismatch", []float32{1, 2, 3}, []float32{1, 2}),
	)
})
