package tokens_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/tokens"
)

var _ = Describe("Counter", func() {
	It("counts nothing in empty text", func() {
		Expect(tokens.Default().Count("")).To(BeZero())
	})

	It("counts at least one token per word", func() {
		n := tokens.Default().Count("the quick brown fox")
		Expect(n).To(BeNumerically(">=", 4))
	})

	It("falls back to words for an unknown encoding", func() {
		c := tokens.NewCounter("no_such_encoding")
		Expect(c.Exact()).To(BeFalse())
		Expect(c.Count("one two  three")).To(Equal(3))
	})

	It("shares the default counter", func() {
		Expect(tokens.Default()).To(BeIdenticalTo(tokens.Default()))
	})
})
