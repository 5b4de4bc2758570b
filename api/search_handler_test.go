package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apisearch "github.com/papercomputeco/stacks/api/search"
	"github.com/papercomputeco/stacks/pkg/index"
	stackslogger "github.com/papercomputeco/stacks/pkg/logger"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
)

var _ = Describe("handleSearchEndpoint", func() {
	var (
		server   *Server
		driver   *testutils.MockIndexDriver
		embedder *testutils.MockEmbedder
	)

	BeforeEach(func() {
		logger := stackslogger.Nop()
		driver = testutils.NewMockIndexDriver()
		embedder = testutils.NewMockEmbedder()

		server = NewServer(
			Config{
				ListenAddr:  ":0",
				IndexDriver: driver,
				Embedder:    embedder,
			},
			nil,
			nil,
			logger,
		)
	})

	Context("when search is not configured", func() {
		It("returns 503 when index driver and embedder are nil", func() {
			noSearchServer := NewServer(Config{ListenAddr: ":0"}, nil, nil, stackslogger.Nop())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := noSearchServer.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	Context("when query parameter is missing", func() {
		It("returns 400", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("query parameter is required"))
		})
	})

	Context("when top_k is invalid", func() {
		It("returns 400 for a non-numeric value", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k=abc", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 400 for zero", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k=0", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("when threshold is invalid", func() {
		It("returns 400 for a non-numeric value", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&threshold=abc", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("with driver-specific score ranges", func() {
		// Cosine similarity hits 1.0 exactly for identical vectors and
		// can go negative, so those thresholds are accepted.
		It("accepts a threshold of 1", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&threshold=1", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})

		It("accepts a negative threshold", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&threshold=-0.5", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})
	})

	Context("with matching records", func() {
		BeforeEach(func() {
			driver.Results = []index.ScoredRecord{
				{
					Record: index.Record{
						ID:       "rec-1",
						Contents: "stacks are layered storage",
						FileName: "arch.md",
						URL:      "mock://arch.md",
					},
					Score: 0.92,
				},
				{
					Record: index.Record{
						ID:       "rec-2",
						Contents: "records carry embeddings",
						FileName: "guide.md",
						URL:      "mock://guide.md",
					},
					Score: 0.41,
				},
			}
		})

		It("returns results best first", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=storage", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output apisearch.SearchOutput
			Expect(json.NewDecoder(resp.Body).Decode(&output)).To(Succeed())
			Expect(output.Count).To(Equal(2))
			Expect(output.Results[0].ID).To(Equal("rec-1"))
			Expect(output.Results[0].FileName).To(Equal("arch.md"))
		})

		It("applies the threshold", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=storage&threshold=0.5", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output apisearch.SearchOutput
			Expect(json.NewDecoder(resp.Body).Decode(&output)).To(Succeed())
			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].ID).To(Equal("rec-1"))
		})
	})

	Context("when the embedder fails", func() {
		It("returns 500", func() {
			embedder.FailOn = "broken"

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=broken", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
		})
	})

	Context("when the index query fails", func() {
		It("returns 500", func() {
			driver.QueryErr = errors.New("index offline")

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
		})
	})
})
