package vector_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	testutils "github.com/papercomputeco/memoria/pkg/utils/test"
	"github.com/papercomputeco/memoria/pkg/vector"
)

var _ = Describe("Collection", func() {
	var (
		dir string
		ctx context.Context
		c   *vector.Collection
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = context.Background()

		var err error
		c, err = vector.OpenCollection(dir, vector.Raw)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Add", func() {
		It("persists ids and vectors in insertion order", func() {
			Expect(c.Add(ctx,
				vector.Record{ID: "1", Vector: []float32{1, 0}},
				vector.Record{ID: "2", Vector: []float32{0, 1}},
			)).To(Succeed())

			reopened, err := vector.OpenCollection(dir, vector.Raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(reopened.IDs()).To(Equal([]string{"1", "2"}))
			Expect(reopened.Dimension()).To(Equal(2))

			v, err := reopened.Get("2")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal([]float32{0, 1}))
		})

		It("replaces an existing id in place", func() {
			Expect(c.Add(ctx, vector.Record{ID: "1", Vector: []float32{1, 0}})).To(Succeed())
			Expect(c.Add(ctx, vector.Record{ID: "2", Vector: []float32{0, 1}})).To(Succeed())
			Expect(c.Add(ctx, vector.Record{ID: "1", Vector: []float32{1, 1}})).To(Succeed())

			Expect(c.IDs()).To(Equal([]string{"1", "2"}))
			v, _ := c.Get("1")
			Expect(v).To(Equal([]float32{1, 1}))
		})

		It("rejects vectors of a different dimension", func() {
			Expect(c.Add(ctx, vector.Record{ID: "1", Vector: []float32{1, 0}})).To(Succeed())

			err := c.Add(ctx, vector.Record{ID: "2", Vector: []float32{1, 0, 0}})
			Expect(err).To(MatchError(vector.ErrDimension))
			Expect(c.Len()).To(Equal(1))
		})
	})

	Describe("Remove", func() {
		It("drops the named ids and ignores unknown ones", func() {
			Expect(c.Add(ctx,
				vector.Record{ID: "1", Vector: []float32{1, 0}},
				vector.Record{ID: "2", Vector: []float32{0, 1}},
				vector.Record{ID: "3", Vector: []float32{1, 1}},
			)).To(Succeed())

			n, err := c.Remove(ctx, "2", "9")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
			Expect(c.IDs()).To(Equal([]string{"1", "3"}))

			_, err = c.Get("2")
			Expect(err).To(MatchError(vector.ErrNotFound))
		})
	})

	Describe("Search", func() {
		It("returns an empty slice for an empty collection", func() {
			matches, err := c.Search(ctx, []float32{1, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).NotTo(BeNil())
			Expect(matches).To(BeEmpty())
		})

		It("ranks by cosine similarity", func() {
			Expect(c.Add(ctx,
				vector.Record{ID: "far", Vector: []float32{0, 1}},
				vector.Record{ID: "near", Vector: []float32{1, 0.1}},
				vector.Record{ID: "mid", Vector: []float32{1, 1}},
			)).To(Succeed())

			matches, err := c.Search(ctx, []float32{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].ID).To(Equal("near"))
			Expect(matches[1].ID).To(Equal("mid"))
		})

		It("keeps insertion order for ties", func() {
			Expect(c.Add(ctx,
				vector.Record{ID: "a", Vector: []float32{1, 0}},
				vector.Record{ID: "b", Vector: []float32{2, 0}},
				vector.Record{ID: "c", Vector: []float32{3, 0}},
			)).To(Succeed())

			matches, err := c.Search(ctx, []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect([]string{matches[0].ID, matches[1].ID, matches[2].ID}).To(Equal([]string{"a", "b", "c"}))
		})
	})

	Describe("Rebuild", func() {
		embed := func(_ context.Context, text string) ([]float32, error) {
			return []float32{float32(len(text)), 1}, nil
		}
		sources := []vector.Source{{ID: "1", Text: "one"}, {ID: "2", Text: "three"}}

		It("recomputes vectors from sources", func() {
			Expect(c.Add(ctx, vector.Record{ID: "stale", Vector: []float32{9, 9}})).To(Succeed())

			Expect(c.Rebuild(ctx, sources, embed)).To(Succeed())
			Expect(c.IDs()).To(Equal([]string{"1", "2"}))
			v, _ := c.Get("2")
			Expect(v).To(Equal([]float32{5, 1}))
		})

		It("produces byte-identical files when run twice", func() {
			path := filepath.Join(dir, vector.Raw+".json")

			Expect(c.Rebuild(ctx, sources, embed)).To(Succeed())
			first, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.Rebuild(ctx, sources, embed)).To(Succeed())
			second, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
		})

		It("leaves the collection untouched when embedding fails", func() {
			Expect(c.Add(ctx, vector.Record{ID: "keep", Vector: []float32{1, 1}})).To(Succeed())

			failing := func(context.Context, string) ([]float32, error) {
				return nil, errors.New("down")
			}
			Expect(c.Rebuild(ctx, sources, failing)).NotTo(Succeed())
			Expect(c.IDs()).To(Equal([]string{"keep"}))
		})

		It("empties the collection on Reset", func() {
			Expect(c.Add(ctx, vector.Record{ID: "1", Vector: []float32{1, 1}})).To(Succeed())
			Expect(c.Reset(ctx)).To(Succeed())
			Expect(c.Len()).To(BeZero())
			Expect(c.Dimension()).To(BeZero())
		})
	})

	It("treats an unreadable file as empty", func() {
		Expect(os.WriteFile(filepath.Join(dir, vector.Branch+".json"), []byte("{nope"), 0o600)).To(Succeed())

		b, err := vector.OpenCollection(dir, vector.Branch)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Len()).To(BeZero())
	})

	Context("with an accelerated index", func() {
		var idx *testutils.MockIndex

		BeforeEach(func() {
			idx = testutils.NewMockIndex()

			var err error
			c, err = vector.OpenCollection(dir, vector.Episodic, vector.WithIndexFactory(idx.Factory()))
			Expect(err).NotTo(HaveOccurred())
		})

		It("mirrors adds and removes", func() {
			Expect(c.Add(ctx, vector.Record{ID: "1", Vector: []float32{1, 0}})).To(Succeed())
			Expect(idx.Has("1")).To(BeTrue())

			_, err := c.Remove(ctx, "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(idx.Has("1")).To(BeFalse())
		})

		It("answers searches from the index when populated", func() {
			idx.Results = []vector.Match{{ID: "1", Score: 0.5}}
			Expect(c.Add(ctx, vector.Record{ID: "1", Vector: []float32{1, 0}})).To(Succeed())

			matches, err := c.Search(ctx, []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(Equal([]vector.Match{{ID: "1", Score: 0.5}}))
			Expect(idx.Queries).To(Equal(1))
		})

		It("replaces the index on rebuild", func() {
			embed := func(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }
			Expect(c.Rebuild(ctx, []vector.Source{{ID: "x", Text: "x"}}, embed)).To(Succeed())

			Expect(idx.Has("x")).To(BeTrue())
			Expect(idx.Replaces).To(BeNumerically(">=", 1))
		})

		It("syncs a lagging index when reopened", func() {
			Expect(c.Add(ctx, vector.Record{ID: "1", Vector: []float32{1, 0}})).To(Succeed())
			Expect(c.Close()).To(Succeed())

			fresh := testutils.NewMockIndex()
			_, err := vector.OpenCollection(dir, vector.Episodic, vector.WithIndexFactory(fresh.Factory()))
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.Has("1")).To(BeTrue())
		})
	})
})

var _ = Describe("Set", func() {
	It("opens the four namespace collections", func() {
		s, err := vector.OpenSet(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		for _, name := range vector.Names {
			c, err := s.Get(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal(name))
		}
		Expect(s.RawChunk().Name()).To(Equal("raw_chunk"))

		_, err = s.Get("semantic")
		Expect(err).To(HaveOccurred())
	})
})
