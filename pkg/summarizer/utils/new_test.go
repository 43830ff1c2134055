package summarizerutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/summarizer/ollama"
	"github.com/papercomputeco/memoria/pkg/summarizer/openai"
	summarizerutils "github.com/papercomputeco/memoria/pkg/summarizer/utils"
)

var _ = Describe("NewSummarizer", func() {
	DescribeTable("builds providers",
		func(provider string, want any) {
			s, err := summarizerutils.NewSummarizer(&summarizerutils.NewSummarizerOpts{ProviderType: provider})
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(BeAssignableToTypeOf(want))
		},
		Entry("openai", "openai", &openai.Summarizer{}),
		Entry("lmstudio", "lmstudio", &openai.Summarizer{}),
		Entry("ollama", "ollama", &ollama.Summarizer{}),
	)

	It("returns nil for none", func() {
		s, err := summarizerutils.NewSummarizer(&summarizerutils.NewSummarizerOpts{ProviderType: "none"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNil())
	})

	It("rejects unknown providers", func() {
		_, err := summarizerutils.NewSummarizer(&summarizerutils.NewSummarizerOpts{ProviderType: "gpt4all"})
		Expect(err).To(HaveOccurred())
	})
})
