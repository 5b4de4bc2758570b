package search_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/api/search"
	"github.com/papercomputeco/stacks/pkg/index"
	stackslogger "github.com/papercomputeco/stacks/pkg/logger"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
)

var _ = Describe("Search", func() {
	var (
		driver   *testutils.MockIndexDriver
		embedder *testutils.MockEmbedder
		ctx      context.Context
	)

	scored := func(id string, score float32) index.ScoredRecord {
		return index.ScoredRecord{
			Record: index.Record{
				ID:       id,
				Contents: "contents of " + id,
				FileName: id + ".md",
				URL:      "mock://" + id,
			},
			Score: score,
		}
	}

	BeforeEach(func() {
		driver = testutils.NewMockIndexDriver()
		embedder = testutils.NewMockEmbedder()
		ctx = context.Background()
	})

	It("rejects an empty query", func() {
		_, err := search.Search(ctx, search.SearchInput{}, embedder, driver, stackslogger.Nop())
		Expect(err).To(MatchError(search.ErrEmptyQuery))
	})

	It("returns index results best first", func() {
		driver.Results = []index.ScoredRecord{
			scored("first", 0.9),
			scored("second", 0.5),
		}

		output, err := search.Search(ctx, search.SearchInput{Query: "layered storage"}, embedder, driver, stackslogger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Query).To(Equal("layered storage"))
		Expect(output.Count).To(Equal(2))
		Expect(output.Results[0].ID).To(Equal("first"))
		Expect(output.Results[1].ID).To(Equal("second"))
	})

	It("excludes results at or below the threshold", func() {
		driver.Results = []index.ScoredRecord{
			scored("keep", 0.9),
			scored("drop", 0.5),
		}

		output, err := search.Search(ctx, search.SearchInput{Query: "q", Threshold: 0.5}, embedder, driver, stackslogger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Count).To(Equal(1))
		Expect(output.Results[0].ID).To(Equal("keep"))
	})

	It("truncates long contents into the preview", func() {
		long := strings.Repeat("stacks ", 100)
		driver.Results = []index.ScoredRecord{{
			Record: index.Record{ID: "r", Contents: long},
			Score:  0.8,
		}}

		output, err := search.Search(ctx, search.SearchInput{Query: "q"}, embedder, driver, stackslogger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(len(output.Results[0].Preview)).To(BeNumerically("<=", 203))
		Expect(output.Results[0].Contents).To(Equal(long))
	})

	It("propagates embedding failures", func() {
		embedder.FailOn = "broken"

		_, err := search.Search(ctx, search.SearchInput{Query: "broken"}, embedder, driver, stackslogger.Nop())
		Expect(err).To(HaveOccurred())
	})
})
