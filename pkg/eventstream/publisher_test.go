package eventstream_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/eventstream"
	testutils "github.com/papercomputeco/memoria/pkg/utils/test"
)

var _ = Describe("NopCloser", func() {
	It("publishes through and never closes the wrapped publisher", func() {
		mock := testutils.NewMockPublisher()
		shared := eventstream.NopCloser(mock)

		event := eventstream.NewSummaryEmitted("ns", eventstream.TierGlobal, 1, "s", eventstream.Coverage{BranchIDs: []uint32{1}})
		Expect(shared.PublishSummary(context.Background(), event)).To(Succeed())
		Expect(shared.Close()).To(Succeed())

		Expect(mock.Events()).To(HaveLen(1))
		Expect(mock.Closed).To(BeFalse())
	})
})
