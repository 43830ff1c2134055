package hash_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/embeddings/hash"
)

var _ = Describe("Embedder", func() {
	ctx := context.Background()

	It("is deterministic", func() {
		e := hash.NewEmbedder(16)
		a, err := e.Embed(ctx, "the cat sat")
		Expect(err).NotTo(HaveOccurred())
		b, err := e.Embed(ctx, "the cat sat")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("separates different text", func() {
		e := hash.NewEmbedder(16)
		a, _ := e.Embed(ctx, "one")
		b, _ := e.Embed(ctx, "two")
		Expect(a).NotTo(Equal(b))
	})

	It("normalizes every dimension into [0,1]", func() {
		v, err := hash.NewEmbedder(100).Embed(ctx, "range check")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveLen(100))
		for _, x := range v {
			Expect(x).To(BeNumerically(">=", 0))
			Expect(x).To(BeNumerically("<=", 1))
		}
	})

	It("extends past one digest without repeating it", func() {
		v, err := hash.NewEmbedder(64).Embed(ctx, "long")
		Expect(err).NotTo(HaveOccurred())
		Expect(v[:32]).NotTo(Equal(v[32:]))
	})

	It("uses the default dimension", func() {
		e := hash.NewEmbedder(0)
		Expect(e.Dimensions()).To(Equal(hash.DefaultDimensions))
		v, err := e.Embed(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveLen(hash.DefaultDimensions))
	})
})
