package chunker_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/chunker"
)

var _ = Describe("Chunk", func() {
	It("keeps short text in a single chunk", func() {
		Expect(chunker.Chunk("A. B. C.", 64)).To(Equal([]string{"A. B. C."}))
	})

	It("packs many one-word sentences within the budget", func() {
		text := strings.TrimSpace(strings.Repeat("Word. ", 300))

		chunks := chunker.Chunk(text, 64)
		Expect(len(chunks)).To(BeNumerically(">", 1))

		total := 0
		for _, c := range chunks {
			n := len(strings.Fields(c))
			Expect(n).To(BeNumerically("<=", 64))
			total += n
		}
		Expect(total).To(Equal(300))
	})

	It("emits an oversized sentence whole", func() {
		long := strings.Repeat("word ", 100) + "end."
		chunks := chunker.Chunk("Short one. "+long+" Tail!", 10)

		Expect(chunks).To(HaveLen(3))
		Expect(chunks[0]).To(Equal("Short one."))
		Expect(strings.Fields(chunks[1])).To(HaveLen(101))
		Expect(chunks[2]).To(Equal("Tail!"))
	})

	It("does not split inside numbers or abbreviations without spaces", func() {
		Expect(chunker.Sentences("Version 1.2 shipped. Really?")).To(Equal([]string{"Version 1.2 shipped.", "Really?"}))
	})

	It("keeps trailing text without terminal punctuation", func() {
		Expect(chunker.Sentences("First! second part")).To(Equal([]string{"First!", "second part"}))
	})

	It("returns nothing for blank text", func() {
		Expect(chunker.Chunk("   \n", 64)).To(BeEmpty())
	})

	It("falls back to the default budget", func() {
		text := strings.TrimSpace(strings.Repeat("a. ", 65))
		Expect(chunker.Chunk(text, 0)).To(HaveLen(2))
	})

	It("is deterministic", func() {
		text := "One. Two three! Four five six? " + strings.Repeat("x ", 70) + "done."
		Expect(chunker.Chunk(text, 8)).To(Equal(chunker.Chunk(text, 8)))
	})
})

var _ = Describe("chunk ids", func() {
	It("formats and parses raw id and position", func() {
		id := chunker.ID(42, 3)
		Expect(id).To(Equal("42_3"))

		raw, pos, err := chunker.ParseID(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(Equal(uint64(42)))
		Expect(pos).To(Equal(3))
	})

	It("rejects malformed ids", func() {
		_, _, err := chunker.ParseID("42")
		Expect(err).To(HaveOccurred())
		_, _, err = chunker.ParseID("x_1")
		Expect(err).To(HaveOccurred())
	})
})
