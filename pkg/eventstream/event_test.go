package eventstream_test

import (
	"encoding/json"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/eventstream"
)

var _ = Describe("SummaryEmittedEvent", func() {
	It("stamps schema, type, id and time", func() {
		event := eventstream.NewSummaryEmitted("default", eventstream.TierEpisodic, 3, "topics", eventstream.Coverage{StartID: 21, EndID: 30})

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal("memoria.summary.emitted"))
		_, err := uuid.Parse(event.EventID)
		Expect(err).NotTo(HaveOccurred())
		Expect(event.EmittedAt.IsZero()).To(BeFalse())
	})

	It("marshals only the coverage of its tier", func() {
		event := eventstream.NewSummaryEmitted("default", eventstream.TierBranch, 1, "para", eventstream.Coverage{EpisodicIDs: []uint32{1, 2, 3, 4}})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("namespace"))
		Expect(got).To(HaveKeyWithValue("tier", "branch"))

		coverage := got["coverage"].(map[string]any)
		Expect(coverage).To(HaveKey("episodic_ids"))
		Expect(coverage).NotTo(HaveKey("start_id"))
		Expect(coverage).NotTo(HaveKey("branch_ids"))
	})

	It("gives every event a distinct id", func() {
		a := eventstream.NewSummaryEmitted("ns", eventstream.TierGlobal, 1, "", eventstream.Coverage{})
		b := eventstream.NewSummaryEmitted("ns", eventstream.TierGlobal, 1, "", eventstream.Coverage{})
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})
})
