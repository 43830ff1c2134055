package memoria_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

var _ = Describe("Registry", func() {
	var reg *memoria.Registry

	BeforeEach(func() {
		reg = memoria.NewRegistry(GinkgoT().TempDir())
	})

	It("opens each namespace once", func() {
		a, err := reg.Get("alice")
		Expect(err).NotTo(HaveOccurred())
		again, err := reg.Get("alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeIdenticalTo(a))

		b, err := reg.Get("bob")
		Expect(err).NotTo(HaveOccurred())
		Expect(b).NotTo(BeIdenticalTo(a))
		Expect(reg.Open()).To(HaveLen(2))

		names, err := reg.Namespaces()
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(ConsistOf("alice", "bob"))
		Expect(reg.Close()).To(Succeed())
	})

	It("keeps namespaces apart", func() {
		a, err := reg.Get("alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = a.Append(context.Background(), rawlog.RoleUser, "hi")
		Expect(err).NotTo(HaveOccurred())

		b, err := reg.Get("bob")
		Expect(err).NotTo(HaveOccurred())
		Expect(b.LastID()).To(BeZero())
		Expect(reg.Close()).To(Succeed())
	})

	It("uses the default namespace for an empty name", func() {
		s, err := reg.Get("")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Namespace()).To(Equal(memoria.DefaultNamespace))
		Expect(reg.Close()).To(Succeed())
	})

	It("rejects invalid names and use after close", func() {
		_, err := reg.Get("../escape")
		Expect(err).To(MatchError(memoria.ErrInvalidNamespace))

		Expect(reg.Close()).To(Succeed())
		_, err = reg.Get("late")
		Expect(err).To(HaveOccurred())
	})
})
